package repository

import "github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"

// InventoryRepository puerto sobre la vista materializada de cantidades.
// Get/GetForUpdate devuelven un registro con Quantity 0 si el par no existe.
// Usado dentro de transacciones para garantizar consistencia.
type InventoryRepository interface {
	Get(itemID, shelfID int64) (*entity.InventoryRecord, error)
	// GetForUpdate bloquea la fila para update (SELECT FOR UPDATE).
	GetForUpdate(itemID, shelfID int64) (*entity.InventoryRecord, error)
	Upsert(rec *entity.InventoryRecord) error

	// Snapshot devuelve todos los registros con cantidad > 0 (para el resolutor
	// de ubicación y los listados).
	Snapshot() ([]*entity.InventoryRecord, error)
	// TotalQuantity suma global de unidades (señal item_count del PLC).
	TotalQuantity() (int64, error)
	// ShelfQuantity unidades totales en un estante, sumando todos los items.
	ShelfQuantity(shelfID int64) (int64, error)
	// DeleteAll vacía la vista; solo para reconstruirla desde el ledger.
	DeleteAll() error
}
