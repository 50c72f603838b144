package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
)

var _ repository.CabinetRepository = (*CabinetRepo)(nil)

// CabinetRepo implementación de CabinetRepository sobre PostgreSQL. Las
// categorías permitidas de cada estante se agregan desde shelf_categories en
// la misma consulta.
type CabinetRepo struct {
	q Querier
}

// NewCabinetRepository construye el adaptador de gabinetes. Pasar pool o tx (Querier).
func NewCabinetRepository(q Querier) *CabinetRepo {
	return &CabinetRepo{q: q}
}

// GetCabinetByID obtiene un gabinete; nil si no existe.
func (r *CabinetRepo) GetCabinetByID(id int64) (*entity.Cabinet, error) {
	query := `SELECT id, name, created_at, updated_at FROM cabinets WHERE id = $1`
	var c entity.Cabinet
	err := r.q.QueryRow(context.Background(), query, id).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cabinet: %w", err)
	}
	return &c, nil
}

// ListCabinets devuelve todos los gabinetes ordenados por id.
func (r *CabinetRepo) ListCabinets() ([]*entity.Cabinet, error) {
	query := `SELECT id, name, created_at, updated_at FROM cabinets ORDER BY id`
	rows, err := r.q.Query(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("list cabinets: %w", err)
	}
	defer rows.Close()

	var cabinets []*entity.Cabinet
	for rows.Next() {
		var c entity.Cabinet
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cabinet: %w", err)
		}
		cabinets = append(cabinets, &c)
	}
	return cabinets, rows.Err()
}

const shelfQuery = `
	SELECT s.id, s.cabinet_id, s.name, s.capacity, s.category_mode,
	       COALESCE(array_agg(sc.category_id) FILTER (WHERE sc.category_id IS NOT NULL), '{}'),
	       s.created_at, s.updated_at
	FROM shelves s
	LEFT JOIN shelf_categories sc ON sc.shelf_id = s.id`

const shelfGroup = ` GROUP BY s.id, s.cabinet_id, s.name, s.capacity, s.category_mode, s.created_at, s.updated_at`

// GetShelfByID obtiene un estante con sus categorías permitidas; nil si no existe.
func (r *CabinetRepo) GetShelfByID(id int64) (*entity.Shelf, error) {
	query := shelfQuery + ` WHERE s.id = $1` + shelfGroup
	var s entity.Shelf
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&s.ID, &s.CabinetID, &s.Name, &s.Capacity, &s.CategoryMode, &s.CategoryIDs, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shelf: %w", err)
	}
	return &s, nil
}

// ListShelves devuelve todos los estantes con sus categorías, ordenados por id.
func (r *CabinetRepo) ListShelves() ([]*entity.Shelf, error) {
	query := shelfQuery + shelfGroup + ` ORDER BY s.id`
	return r.scanShelves(query)
}

// ListShelvesByCabinet devuelve los estantes de un gabinete, ordenados por id.
func (r *CabinetRepo) ListShelvesByCabinet(cabinetID int64) ([]*entity.Shelf, error) {
	query := shelfQuery + ` WHERE s.cabinet_id = $1` + shelfGroup + ` ORDER BY s.id`
	return r.scanShelves(query, cabinetID)
}

func (r *CabinetRepo) scanShelves(query string, args ...any) ([]*entity.Shelf, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shelves: %w", err)
	}
	defer rows.Close()

	var shelves []*entity.Shelf
	for rows.Next() {
		var s entity.Shelf
		if err := rows.Scan(&s.ID, &s.CabinetID, &s.Name, &s.Capacity, &s.CategoryMode, &s.CategoryIDs, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan shelf: %w", err)
		}
		shelves = append(shelves, &s)
	}
	return shelves, rows.Err()
}
