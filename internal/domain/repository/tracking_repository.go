package repository

import "github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"

// TrackingRepository puerto de la bitácora de avistamientos RFID.
type TrackingRepository interface {
	Create(t *entity.TagTracking) error
	ListByTag(tag string, limit int) ([]*entity.TagTracking, error)
}
