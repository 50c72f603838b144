package dto

import "time"

// InventoryRecordResponse una fila de la vista de inventario.
type InventoryRecordResponse struct {
	ItemID    int64     `json:"item_id"`
	ItemName  string    `json:"item_name,omitempty"`
	ShelfID   int64     `json:"shelf_id"`
	ShelfName string    `json:"shelf_name,omitempty"`
	Quantity  int64     `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemLocationResponse última ubicación conocida de un producto.
type ItemLocationResponse struct {
	ItemID    int64     `json:"item_id"`
	ShelfID   int64     `json:"shelf_id"`
	ShelfName string    `json:"shelf_name,omitempty"`
	Quantity  int64     `json:"quantity"`
	Kind      string    `json:"last_operation,omitempty"`
	Timestamp time.Time `json:"last_operation_at,omitempty"`
}

// CategoryResponse categoría de producto.
type CategoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TransactionResponse una transacción del ledger.
type TransactionResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	ItemID      int64     `json:"item_id"`
	ShelfID     int64     `json:"shelf_id,omitempty"`
	FromShelfID int64     `json:"from_shelf_id,omitempty"`
	ToShelfID   int64     `json:"to_shelf_id,omitempty"`
	Quantity    int64     `json:"quantity"`
	StaffID     int64     `json:"staff_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
}
