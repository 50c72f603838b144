package entity

import "time"

// Category categoría de producto; determina en qué estantes puede colocarse un item.
type Category struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
