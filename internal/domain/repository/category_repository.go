package repository

import "github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"

// CategoryRepository puerto de lectura de categorías.
type CategoryRepository interface {
	GetByID(id int64) (*entity.Category, error)
	List() ([]*entity.Category, error)
}
