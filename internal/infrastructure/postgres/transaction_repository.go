package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

const txColumns = `id, idempotency_key, kind, item_id, COALESCE(shelf_id, 0), COALESCE(from_shelf_id, 0), COALESCE(to_shelf_id, 0), quantity, COALESCE(staff_id, 0), timestamp, status`

// TransactionRepo implementación de TransactionRepository sobre PostgreSQL.
// Solo inserta y lee: el ledger es append-only y no hay UPDATE ni DELETE.
type TransactionRepo struct {
	q Querier
}

// NewTransactionRepository construye el adaptador del ledger. Pasar pool o tx (Querier).
func NewTransactionRepository(q Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

// Create inserta una transacción. La clave de idempotencia tiene constraint
// único: una repetición concurrente desde otra instancia que se cuele hasta
// aquí sale como ErrDuplicateKey y el ledger relee la transacción original.
func (r *TransactionRepo) Create(tx *entity.Transaction) error {
	query := `
		INSERT INTO transactions (id, idempotency_key, kind, item_id, shelf_id, from_shelf_id, to_shelf_id, quantity, staff_id, timestamp, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0), NULLIF($6, 0), NULLIF($7, 0), $8, NULLIF($9, 0), $10, $11)`
	_, err := r.q.Exec(context.Background(), query,
		tx.ID, tx.IdempotencyKey, tx.Kind, tx.ItemID, tx.ShelfID, tx.FromShelfID, tx.ToShelfID,
		tx.Quantity, tx.StaffID, tx.Timestamp, tx.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("clave de idempotencia repetida: %w", domain.ErrDuplicateKey)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByIdempotencyKey devuelve la transacción original de una clave; nil si la clave es nueva.
func (r *TransactionRepo) GetByIdempotencyKey(key string) (*entity.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE idempotency_key = $1`
	return r.scanOne(query, key)
}

// GetByID obtiene una transacción por id; nil si no existe.
func (r *TransactionRepo) GetByID(id string) (*entity.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`
	return r.scanOne(query, id)
}

// ListOrdered devuelve una página en orden de ledger.
func (r *TransactionRepo) ListOrdered(limit, offset int) ([]*entity.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions ORDER BY timestamp, id LIMIT $1 OFFSET $2`
	return r.scanMany(query, limit, offset)
}

// ListAllOrdered devuelve el ledger completo en orden; para reconstruir la vista.
func (r *TransactionRepo) ListAllOrdered() ([]*entity.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions ORDER BY timestamp, id`
	return r.scanMany(query)
}

// LatestForItem última transacción del item (ubicación más reciente).
func (r *TransactionRepo) LatestForItem(itemID int64) (*entity.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE item_id = $1 ORDER BY timestamp DESC, id DESC LIMIT 1`
	return r.scanOne(query, itemID)
}

func (r *TransactionRepo) scanOne(query string, arg any) (*entity.Transaction, error) {
	var tx entity.Transaction
	err := r.q.QueryRow(context.Background(), query, arg).Scan(
		&tx.ID, &tx.IdempotencyKey, &tx.Kind, &tx.ItemID, &tx.ShelfID, &tx.FromShelfID, &tx.ToShelfID,
		&tx.Quantity, &tx.StaffID, &tx.Timestamp, &tx.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &tx, nil
}

func (r *TransactionRepo) scanMany(query string, args ...any) ([]*entity.Transaction, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*entity.Transaction
	for rows.Next() {
		var tx entity.Transaction
		if err := rows.Scan(&tx.ID, &tx.IdempotencyKey, &tx.Kind, &tx.ItemID, &tx.ShelfID, &tx.FromShelfID, &tx.ToShelfID,
			&tx.Quantity, &tx.StaffID, &tx.Timestamp, &tx.Status); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, &tx)
	}
	return txs, rows.Err()
}
