package dto

// LoginRequest entrada para login de personal.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// StaffResponse salida de un miembro del personal (sin hash de password).
type StaffResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Active   bool   `json:"active"`
}

// LoginResponse token + personal autenticado.
type LoginResponse struct {
	Token string        `json:"token"`
	Staff StaffResponse `json:"staff"`
}
