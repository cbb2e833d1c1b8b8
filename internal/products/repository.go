package products

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/stockwatch-backend/internal/repo"
	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
)

// Repository exposes the product reads the alerting jobs depend on.
type Repository interface {
	FindAtOrBelowReorderPoint(ctx context.Context) ([]models.Product, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a products repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

// FindAtOrBelowReorderPoint returns every product whose stock level has fallen
// to or below its reorder point, including products that are out of stock.
func (r *repository) FindAtOrBelowReorderPoint(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.DB(ctx).
		Where("stock_level <= reorder_point").
		Order("name ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find products at or below reorder point: %w", err)
	}
	return rows, nil
}
