package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

const itemColumns = `id, name, COALESCE(barcode, ''), COALESCE(rfid_tag, ''), category_id, COALESCE(description, ''), created_at, updated_at`

// ItemRepo implementación de ItemRepository sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de productos. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

// GetByID obtiene un producto por id; nil si no existe.
func (r *ItemRepo) GetByID(id int64) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	return r.scanOne(query, id)
}

// GetByRFIDTag obtiene el producto asociado a un tag; nil si el tag no está asignado.
func (r *ItemRepo) GetByRFIDTag(tag string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE rfid_tag = $1`
	return r.scanOne(query, tag)
}

// GetByBarcode obtiene un producto por código de barras; nil si no existe.
func (r *ItemRepo) GetByBarcode(barcode string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE barcode = $1`
	return r.scanOne(query, barcode)
}

// List devuelve una página de productos ordenada por id.
func (r *ItemRepo) List(limit, offset int) ([]*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(context.Background(), query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*entity.Item
	for rows.Next() {
		var it entity.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Barcode, &it.RFIDTag, &it.CategoryID, &it.Description, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (r *ItemRepo) scanOne(query string, arg any) (*entity.Item, error) {
	var it entity.Item
	err := r.q.QueryRow(context.Background(), query, arg).Scan(
		&it.ID, &it.Name, &it.Barcode, &it.RFIDTag, &it.CategoryID, &it.Description, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &it, nil
}
