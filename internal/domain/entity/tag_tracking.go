package entity

import "time"

// Estados de seguimiento de un tag.
const (
	TrackingScanned = "scanned"
	TrackingAdded   = "added"
	TrackingRemoved = "removed"
	TrackingMoved   = "moved"
)

// TagTracking bitácora de avistamientos de tags RFID (solo inserción).
// A diferencia del ledger no afecta cantidades; sirve para auditoría y
// para ubicar físicamente un producto.
type TagTracking struct {
	ID        int64
	RFIDTag   string
	ItemID    int64
	ShelfID   int64 // 0 si el avistamiento no está asociado a un estante
	Status    string
	Timestamp time.Time
}
