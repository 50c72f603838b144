package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
)

var _ repository.StaffRepository = (*StaffRepo)(nil)

const staffColumns = `id, username, password_hash, COALESCE(rfid_tag, ''), role, active, created_at, updated_at`

// StaffRepo implementación de StaffRepository sobre PostgreSQL.
type StaffRepo struct {
	q Querier
}

// NewStaffRepository construye el adaptador de personal. Pasar pool o tx (Querier).
func NewStaffRepository(q Querier) *StaffRepo {
	return &StaffRepo{q: q}
}

// GetByID obtiene un miembro del personal; nil si no existe.
func (r *StaffRepo) GetByID(id int64) (*entity.Staff, error) {
	return r.scanOne(`SELECT `+staffColumns+` FROM staff WHERE id = $1`, id)
}

// GetByRFIDTag obtiene el personal dueño de una tarjeta; nil si la tarjeta no está asignada.
func (r *StaffRepo) GetByRFIDTag(tag string) (*entity.Staff, error) {
	return r.scanOne(`SELECT `+staffColumns+` FROM staff WHERE rfid_tag = $1`, tag)
}

// GetByUsername obtiene un miembro por username; nil si no existe.
func (r *StaffRepo) GetByUsername(username string) (*entity.Staff, error) {
	return r.scanOne(`SELECT `+staffColumns+` FROM staff WHERE username = $1`, username)
}

func (r *StaffRepo) scanOne(query string, arg any) (*entity.Staff, error) {
	var s entity.Staff
	err := r.q.QueryRow(context.Background(), query, arg).Scan(
		&s.ID, &s.Username, &s.PasswordHash, &s.RFIDTag, &s.Role, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get staff: %w", err)
	}
	return &s, nil
}
