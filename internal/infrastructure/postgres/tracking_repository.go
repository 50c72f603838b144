package postgres

import (
	"context"
	"fmt"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
)

var _ repository.TrackingRepository = (*TrackingRepo)(nil)

// TrackingRepo implementación de TrackingRepository sobre PostgreSQL.
type TrackingRepo struct {
	q Querier
}

// NewTrackingRepository construye el adaptador de la bitácora. Pasar pool o tx (Querier).
func NewTrackingRepository(q Querier) *TrackingRepo {
	return &TrackingRepo{q: q}
}

// Create inserta un avistamiento y completa el id generado.
func (r *TrackingRepo) Create(t *entity.TagTracking) error {
	query := `
		INSERT INTO tag_trackings (rfid_tag, item_id, shelf_id, status, timestamp)
		VALUES ($1, NULLIF($2, 0), NULLIF($3, 0), $4, $5)
		RETURNING id`
	err := r.q.QueryRow(context.Background(), query, t.RFIDTag, t.ItemID, t.ShelfID, t.Status, t.Timestamp).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert tracking: %w", err)
	}
	return nil
}

// ListByTag historial de un tag, del más reciente al más antiguo.
func (r *TrackingRepo) ListByTag(tag string, limit int) ([]*entity.TagTracking, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, rfid_tag, COALESCE(item_id, 0), COALESCE(shelf_id, 0), status, timestamp
		FROM tag_trackings WHERE rfid_tag = $1
		ORDER BY timestamp DESC, id DESC LIMIT $2`
	rows, err := r.q.Query(context.Background(), query, tag, limit)
	if err != nil {
		return nil, fmt.Errorf("list trackings: %w", err)
	}
	defer rows.Close()

	var out []*entity.TagTracking
	for rows.Next() {
		var t entity.TagTracking
		if err := rows.Scan(&t.ID, &t.RFIDTag, &t.ItemID, &t.ShelfID, &t.Status, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan tracking: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
