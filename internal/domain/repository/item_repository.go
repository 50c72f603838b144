package repository

import "github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"

// ItemRepository puerto de lectura de productos. El núcleo no crea ni edita
// productos; eso pertenece a la capa administrativa.
type ItemRepository interface {
	GetByID(id int64) (*entity.Item, error)
	GetByRFIDTag(tag string) (*entity.Item, error)
	GetByBarcode(barcode string) (*entity.Item, error)
	List(limit, offset int) ([]*entity.Item, error)
}
