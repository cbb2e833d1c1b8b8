package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockwatch-backend/internal/repo"
	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ExistsSince(ctx context.Context, notificationType enums.NotificationType, ref EntityRef, since time.Time) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// EntityRef identifies the product or order a notification is about. The zero
// value targets no entity (system notifications).
type EntityRef struct {
	ProductID *uuid.UUID
	OrderID   *uuid.UUID
}

// ProductRef references a product.
func ProductRef(id uuid.UUID) EntityRef {
	return EntityRef{ProductID: &id}
}

// OrderRef references an order.
func OrderRef(id uuid.UUID) EntityRef {
	return EntityRef{OrderID: &id}
}

func (r EntityRef) String() string {
	switch {
	case r.ProductID != nil:
		return "product:" + r.ProductID.String()
	case r.OrderID != nil:
		return "order:" + r.OrderID.String()
	default:
		return "none"
	}
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.DB(ctx).Create(notification).Error
}

// ExistsSince reports whether a notification of the given type about ref was
// created strictly after since.
func (r *repositoryImpl) ExistsSince(ctx context.Context, notificationType enums.NotificationType, ref EntityRef, since time.Time) (bool, error) {
	query := r.DB(ctx).
		Model(&models.Notification{}).
		Where("type = ?", string(notificationType)).
		Where("created_at > ?", since.UTC())

	switch {
	case ref.ProductID != nil:
		query = query.Where("product_id = ?", *ref.ProductID)
	case ref.OrderID != nil:
		query = query.Where("order_id = ?", *ref.OrderID)
	default:
		query = query.Where("product_id IS NULL AND order_id IS NULL")
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("count %s notifications for %s: %w", notificationType, ref, err)
	}
	return count > 0, nil
}

// DeleteOlderThan removes every notification created before cutoff, read or not.
func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.DB(ctx).
		Where("created_at < ?", cutoff.UTC()).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete notifications before %s: %w", cutoff.UTC().Format(time.RFC3339), result.Error)
	}
	return result.RowsAffected, nil
}
