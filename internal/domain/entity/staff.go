package entity

import "time"

// Roles del personal.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// Staff miembro del personal del almacén. Se autentica por credencial
// (API) o por su tarjeta RFID (operaciones en piso).
type Staff struct {
	ID           int64
	Username     string
	PasswordHash string
	RFIDTag      string // único
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
