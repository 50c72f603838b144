package entity

import "time"

// Modos de categoría de un estante.
const (
	CategoryModeSingle = "single" // admite exactamente una categoría configurada
	CategoryModeMulti  = "multi"  // admite cualquiera de su conjunto de categorías
)

// Cabinet gabinete físico; agrupa estantes en orden.
type Cabinet struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Shelf estante dentro de un gabinete. Capacity 0 significa sin límite.
// CategoryIDs son las categorías permitidas (exactamente una en modo single).
type Shelf struct {
	ID           int64
	CabinetID    int64
	Name         string
	Capacity     int64
	CategoryMode string
	CategoryIDs  []int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AllowsCategory indica si el estante admite la categoría según su modo.
func (s *Shelf) AllowsCategory(categoryID int64) bool {
	switch s.CategoryMode {
	case CategoryModeSingle:
		return len(s.CategoryIDs) == 1 && s.CategoryIDs[0] == categoryID
	case CategoryModeMulti:
		for _, id := range s.CategoryIDs {
			if id == categoryID {
				return true
			}
		}
	}
	return false
}

// Unlimited indica si el estante no tiene capacidad configurada.
func (s *Shelf) Unlimited() bool { return s.Capacity <= 0 }
