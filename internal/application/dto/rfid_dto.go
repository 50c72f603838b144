package dto

// RFIDAuthRequest autenticación por tarjeta RFID.
type RFIDAuthRequest struct {
	RFIDTag string `json:"rfid_tag" validate:"required"`
}

// RFIDAuthResponse personal resuelto a partir de la tarjeta.
type RFIDAuthResponse struct {
	Status string        `json:"status"`
	Staff  StaffResponse `json:"staff"`
	Token  string        `json:"token,omitempty"`
}

// RFIDOpRequest entrada de carga/retiro/traslado. El producto se identifica
// por tag, id o código de barras; los estantes en cero se resuelven.
type RFIDOpRequest struct {
	RFIDTag        string `json:"rfid_tag,omitempty"`
	ProductRFID    string `json:"product_rfid,omitempty"` // alias de rfid_tag
	ProductID      int64  `json:"product_id,omitempty"`
	Barcode        string `json:"barcode,omitempty"`
	Quantity       int64  `json:"quantity,omitempty"` // ausente = 1
	ShelfID        int64  `json:"shelf_id,omitempty"`
	CabinetID      int64  `json:"cabinet_id,omitempty"`
	FromShelfID    int64  `json:"from_shelf_id,omitempty"`
	ToShelfID      int64  `json:"to_shelf_id,omitempty"`
	ReaderID       string `json:"reader_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// RFIDOpResponse resultado de una operación confirmada.
type RFIDOpResponse struct {
	Status        string `json:"status"` // ok | replayed
	TransactionID string `json:"transaction_id"`
	ShelfID       int64  `json:"shelf_id"`
	ShelfName     string `json:"shelf_name,omitempty"`
	Quantity      int64  `json:"quantity"`
}

// ScanRequest lote de tags reportado por un lector.
type ScanRequest struct {
	ReaderID string   `json:"reader_id"`
	RFIDTags []string `json:"rfid_tags" validate:"required,min=1"`
}

// TagTrackingResponse entrada del historial de avistamientos de un tag.
type TagTrackingResponse struct {
	RFIDTag   string `json:"rfid_tag"`
	ItemID    int64  `json:"item_id,omitempty"`
	ShelfID   int64  `json:"shelf_id,omitempty"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReaderStatusResponse estado de un listener de lector.
type ReaderStatusResponse struct {
	ReaderID          string `json:"reader_id"`
	Transport         string `json:"transport"`
	Connected         bool   `json:"connected"`
	Running           bool   `json:"running"`
	ReconnectAttempts int64  `json:"reconnect_attempts"`
	ErrorCount        int64  `json:"error_count"`
	LastActivity      string `json:"last_activity,omitempty"`
	LastError         string `json:"last_error,omitempty"`
}
