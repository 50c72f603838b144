package ledger

import (
	"context"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. El append al ledger y la actualización de la
// vista de inventario ocurren dentro del mismo Run: o se confirman juntos o
// ninguno queda registrado.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		txRepo repository.TransactionRepository,
		invRepo repository.InventoryRepository,
		trackRepo repository.TrackingRepository,
	) error) error
}
