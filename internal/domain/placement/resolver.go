package placement

import (
	"math"
	"sort"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
)

// Resolve selecciona el estante destino para cargar qty unidades de un item
// (servicio de dominio, puro y determinista).
//
// Reglas, en orden:
//  1. Solo estantes cuyo modo de categoría admite la categoría del item y con
//     capacidad restante suficiente para qty.
//  2. Si se pidió un gabinete (requestedCabinet > 0) se intenta primero dentro
//     de él; solo si ningún estante de ese gabinete califica se consideran los demás.
//  3. Dentro del conjunto: se prefieren estantes que ya contienen el mismo item
//     (consolidación); entre empates, el de mayor capacidad restante; entre
//     empates, el de menor ID (desempate estable).
//
// Con el mismo snapshot y la misma configuración el resultado es siempre el mismo.
func Resolve(
	item *entity.Item,
	qty int64,
	requestedCabinet int64,
	shelves []*entity.Shelf,
	records []*entity.InventoryRecord,
) (*entity.Shelf, error) {
	if item == nil || qty <= 0 {
		return nil, domain.ErrInvalidInput
	}

	// Cantidades por estante y por (item, estante) a partir del snapshot.
	shelfUsed := make(map[int64]int64)
	itemOnShelf := make(map[int64]int64)
	for _, rec := range records {
		shelfUsed[rec.ShelfID] += rec.Quantity
		if rec.ItemID == item.ID {
			itemOnShelf[rec.ShelfID] = rec.Quantity
		}
	}

	if requestedCabinet > 0 {
		var inCabinet []*entity.Shelf
		for _, s := range shelves {
			if s.CabinetID == requestedCabinet {
				inCabinet = append(inCabinet, s)
			}
		}
		if best := pick(item, qty, inCabinet, shelfUsed, itemOnShelf); best != nil {
			return best, nil
		}
		// Ningún estante del gabinete pedido califica: se abre a los demás.
		var others []*entity.Shelf
		for _, s := range shelves {
			if s.CabinetID != requestedCabinet {
				others = append(others, s)
			}
		}
		if best := pick(item, qty, others, shelfUsed, itemOnShelf); best != nil {
			return best, nil
		}
		return nil, domain.ErrNoCapacity
	}

	if best := pick(item, qty, shelves, shelfUsed, itemOnShelf); best != nil {
		return best, nil
	}
	return nil, domain.ErrNoCapacity
}

// pick aplica filtro de elegibilidad y ranking sobre un conjunto de estantes.
func pick(
	item *entity.Item,
	qty int64,
	shelves []*entity.Shelf,
	shelfUsed, itemOnShelf map[int64]int64,
) *entity.Shelf {
	type candidate struct {
		shelf     *entity.Shelf
		holds     bool  // ya contiene el mismo item
		remaining int64 // capacidad restante tras la carga hipotética
	}

	var candidates []candidate
	for _, s := range shelves {
		if !s.AllowsCategory(item.CategoryID) {
			continue
		}
		remaining := int64(math.MaxInt64)
		if !s.Unlimited() {
			remaining = s.Capacity - shelfUsed[s.ID] - qty
			if remaining < 0 {
				continue // no cabe
			}
		}
		candidates = append(candidates, candidate{
			shelf:     s,
			holds:     itemOnShelf[s.ID] > 0,
			remaining: remaining,
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.holds != b.holds {
			return a.holds // consolidación primero
		}
		if a.remaining != b.remaining {
			return a.remaining > b.remaining
		}
		return a.shelf.ID < b.shelf.ID
	})
	return candidates[0].shelf
}
