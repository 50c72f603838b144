package repository

import "github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"

// StaffRepository puerto de lectura del personal.
type StaffRepository interface {
	GetByID(id int64) (*entity.Staff, error)
	GetByRFIDTag(tag string) (*entity.Staff, error)
	GetByUsername(username string) (*entity.Staff, error)
}
