package entity

import "time"

// InventoryRecord cantidad actual de un producto en un estante (vista materializada).
// Invariante: Quantity nunca negativa. Solo el ledger la escribe; cualquier
// consumidor puede leerla. Es estado derivado: debe coincidir con la suma de
// transacciones del ledger.
type InventoryRecord struct {
	ItemID    int64
	ShelfID   int64
	Quantity  int64
	UpdatedAt time.Time
}
