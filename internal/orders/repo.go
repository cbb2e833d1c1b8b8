package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockwatch-backend/internal/repo"
	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockwatch-backend/pkg/errors"
)

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) withProductName(ctx context.Context) *gorm.DB {
	return r.DB(ctx).
		Model(&models.Order{}).
		Select("orders.*, products.name AS product_name").
		Joins("JOIN products ON products.id = orders.product_id")
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.withProductName(ctx).
		Where("orders.id = ?", id).
		Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").WithDetails(map[string]any{"order_id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}
	return &order, nil
}

// FindByStatusesBefore returns orders in one of statuses whose expected date is
// strictly before the cutoff, oldest first.
func (r *repository) FindByStatusesBefore(ctx context.Context, statuses []enums.OrderStatus, before time.Time) ([]models.Order, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	var rows []models.Order
	err := r.withProductName(ctx).
		Where("orders.status IN ?", statusStrings(statuses)).
		Where("orders.expected_date < ?", before.UTC()).
		Order("orders.expected_date ASC").
		Order("orders.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find orders by status before %s: %w", before.UTC().Format(time.RFC3339), err)
	}
	return rows, nil
}

// UpdateStatusIfIn sets the order status to `to` only while its current status
// is one of `from`. It reports whether a row changed. No other column is written.
func (r *repository) UpdateStatusIfIn(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, statusStrings(from)).
		UpdateColumn("status", string(to))
	if res.Error != nil {
		return false, fmt.Errorf("update order %s status: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func statusStrings(statuses []enums.OrderStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
