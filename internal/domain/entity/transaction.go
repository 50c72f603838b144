package entity

import "time"

// Tipos de transacción de inventario.
const (
	KindLoad   = "load"   // entrada a un estante
	KindUnload = "unload" // salida de un estante
	KindMove   = "move"   // traslado entre estantes
)

// Estado resultante de una transacción confirmada.
const StatusCommitted = "committed"

// Transaction registro inmutable del ledger. Una vez añadida nunca se muta
// ni se borra; las correcciones son transacciones compensatorias nuevas.
// IdempotencyKey es única: repetir la clave devuelve el resultado original.
type Transaction struct {
	ID             string // uuid
	IdempotencyKey string
	Kind           string
	ItemID         int64
	ShelfID        int64 // destino para load, origen para unload
	FromShelfID    int64 // solo move
	ToShelfID      int64 // solo move
	Quantity       int64 // > 0 siempre; el signo lo da Kind
	StaffID        int64
	Timestamp      time.Time
	Status         string
}
