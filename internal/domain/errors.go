package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")

	// Resolución de tags RFID.
	ErrUnknownTag    = errors.New("tag RFID desconocido")
	ErrInactiveStaff = errors.New("personal inactivo")

	// Rechazos de negocio del ledger; se reportan sin mutar nada.
	ErrInsufficientStock       = errors.New("stock insuficiente")
	ErrOverCapacity            = errors.New("capacidad del estante excedida")
	ErrInvalidShelfForCategory = errors.New("el estante no admite la categoría del producto")

	// Otra instancia insertó la misma clave de idempotencia entre la lectura
	// y el insert; el ledger relee y devuelve la transacción original.
	ErrDuplicateKey = errors.New("clave de idempotencia ya registrada")

	// Resolución de ubicación.
	ErrNoCapacity = errors.New("ningún estante elegible con capacidad")

	// Enlace con el PLC. Nunca bloquean ni revierten una transacción local.
	ErrHardwareTimeout  = errors.New("timeout en operación con el PLC")
	ErrHardwareRejected = errors.New("operación rechazada por el PLC")
	ErrNotConnected     = errors.New("enlace con el PLC no conectado")
	ErrLinkFailed       = errors.New("enlace con el PLC en estado failed; requiere reset")
)
