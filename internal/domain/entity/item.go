package entity

import "time"

// Item representa un producto inventariable. La identidad es inmutable;
// los campos descriptivos pueden editarse desde la capa administrativa.
type Item struct {
	ID          int64
	Name        string
	Barcode     string
	RFIDTag     string // único mientras esté activo; vacío si el producto no tiene tag
	CategoryID  int64
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
