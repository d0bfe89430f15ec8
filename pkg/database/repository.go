package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repository defines the read operations used by the gateway
type Repository[T any] interface {
	List(ctx context.Context, limit int) ([]*T, error)
	GetByField(ctx context.Context, field string, value any) (*T, error)
}

// GormRepository implements Repository using Gorm
type GormRepository[T any] struct {
	db *gorm.DB
}

func NewGormRepository[T any](db *gorm.DB) *GormRepository[T] {
	return &GormRepository[T]{db: db}
}

// List returns the newest entities first, at most limit of them
func (repository *GormRepository[T]) List(ctx context.Context, limit int) ([]*T, error) {
	var entities []*T
	query := repository.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	result := query.Find(&entities)
	return entities, result.Error
}

// GetByField returns the newest entity whose field equals value
func (repository *GormRepository[T]) GetByField(ctx context.Context, field string, value any) (*T, error) {
	var entity T
	result := repository.db.WithContext(ctx).
		Where(fmt.Sprintf("%s = ?", field), value).
		Order("id DESC").
		Take(&entity)
	if result.Error != nil {
		return nil, result.Error
	}
	return &entity, nil
}
