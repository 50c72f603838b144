package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

// InventoryRepo implementación de InventoryRepository sobre PostgreSQL. La
// tabla inventory es la vista materializada del ledger; solo el TxRunner del
// ledger debería escribirla.
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador de inventario. Pasar pool o tx (Querier).
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

// Get obtiene la cantidad actual de un par; registro con cantidad 0 si no existe.
func (r *InventoryRepo) Get(itemID, shelfID int64) (*entity.InventoryRecord, error) {
	query := `SELECT item_id, shelf_id, quantity, updated_at FROM inventory WHERE item_id = $1 AND shelf_id = $2`
	return r.scanOne(query, itemID, shelfID)
}

// GetForUpdate obtiene el par y bloquea la fila para update (SELECT FOR UPDATE).
func (r *InventoryRepo) GetForUpdate(itemID, shelfID int64) (*entity.InventoryRecord, error) {
	query := `SELECT item_id, shelf_id, quantity, updated_at FROM inventory WHERE item_id = $1 AND shelf_id = $2 FOR UPDATE`
	return r.scanOne(query, itemID, shelfID)
}

// Upsert inserta o actualiza la cantidad del par.
func (r *InventoryRepo) Upsert(rec *entity.InventoryRecord) error {
	query := `
		INSERT INTO inventory (item_id, shelf_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (item_id, shelf_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(context.Background(), query, rec.ItemID, rec.ShelfID, rec.Quantity, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}

// Snapshot devuelve todos los pares con cantidad > 0, ordenados.
func (r *InventoryRepo) Snapshot() ([]*entity.InventoryRecord, error) {
	query := `SELECT item_id, shelf_id, quantity, updated_at FROM inventory WHERE quantity > 0 ORDER BY item_id, shelf_id`
	rows, err := r.q.Query(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("snapshot inventory: %w", err)
	}
	defer rows.Close()

	var records []*entity.InventoryRecord
	for rows.Next() {
		var rec entity.InventoryRecord
		if err := rows.Scan(&rec.ItemID, &rec.ShelfID, &rec.Quantity, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// TotalQuantity suma global de unidades.
func (r *InventoryRepo) TotalQuantity() (int64, error) {
	var total int64
	err := r.q.QueryRow(context.Background(), `SELECT COALESCE(SUM(quantity), 0) FROM inventory`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total inventory: %w", err)
	}
	return total, nil
}

// ShelfQuantity unidades totales en un estante.
func (r *InventoryRepo) ShelfQuantity(shelfID int64) (int64, error) {
	var total int64
	err := r.q.QueryRow(context.Background(),
		`SELECT COALESCE(SUM(quantity), 0) FROM inventory WHERE shelf_id = $1`, shelfID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("shelf quantity: %w", err)
	}
	return total, nil
}

// DeleteAll vacía la vista; solo para reconstruirla desde el ledger.
func (r *InventoryRepo) DeleteAll() error {
	if _, err := r.q.Exec(context.Background(), `DELETE FROM inventory`); err != nil {
		return fmt.Errorf("clear inventory: %w", err)
	}
	return nil
}

func (r *InventoryRepo) scanOne(query string, itemID, shelfID int64) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	err := r.q.QueryRow(context.Background(), query, itemID, shelfID).Scan(
		&rec.ItemID, &rec.ShelfID, &rec.Quantity, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.InventoryRecord{ItemID: itemID, ShelfID: shelfID}, nil
		}
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return &rec, nil
}
