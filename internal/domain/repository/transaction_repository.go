package repository

import "github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"

// TransactionRepository puerto del ledger (solo inserción; las transacciones
// jamás se mutan ni se borran).
type TransactionRepository interface {
	Create(tx *entity.Transaction) error
	// GetByIdempotencyKey devuelve la transacción original de una clave ya
	// usada, o nil si la clave es nueva.
	GetByIdempotencyKey(key string) (*entity.Transaction, error)
	GetByID(id string) (*entity.Transaction, error)
	// ListOrdered páginas en orden de ledger (timestamp ascendente, id como desempate).
	ListOrdered(limit, offset int) ([]*entity.Transaction, error)
	// ListAllOrdered ledger completo en orden; para reconstruir la vista.
	ListAllOrdered() ([]*entity.Transaction, error)
	// LatestForItem última transacción del item con estante asociado (ubicación actual).
	LatestForItem(itemID int64) (*entity.Transaction, error)
}
