package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
)

// Repository defines the order reads and the conditional status write used by
// the scheduler.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByStatusesBefore(ctx context.Context, statuses []enums.OrderStatus, before time.Time) ([]models.Order, error)
	UpdateStatusIfIn(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus) (bool, error)
}
