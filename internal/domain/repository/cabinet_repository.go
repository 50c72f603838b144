package repository

import "github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"

// CabinetRepository puerto de lectura de gabinetes y estantes (configuración;
// solo lectura para el núcleo). Los estantes traen sus categorías permitidas.
type CabinetRepository interface {
	GetCabinetByID(id int64) (*entity.Cabinet, error)
	ListCabinets() ([]*entity.Cabinet, error)
	GetShelfByID(id int64) (*entity.Shelf, error)
	ListShelves() ([]*entity.Shelf, error)
	ListShelvesByCabinet(cabinetID int64) ([]*entity.Shelf, error)
}
