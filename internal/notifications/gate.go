package notifications

import (
	"context"
	"time"

	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockwatch-backend/pkg/errors"
)

const (
	LowStockWindow     = time.Hour
	OverdueOrderWindow = 6 * time.Hour
)

// DefaultWindow returns the suppression window for a notification type.
// System notifications are never deduplicated.
func DefaultWindow(notificationType enums.NotificationType) time.Duration {
	switch notificationType {
	case enums.NotificationTypeLowStock:
		return LowStockWindow
	case enums.NotificationTypeOverdueOrder:
		return OverdueOrderWindow
	default:
		return 0
	}
}

// Gate suppresses alerts already raised for the same entity within a window.
// The notification log itself is the dedup state.
type Gate struct {
	repo Repository
	now  func() time.Time
}

// NewGate builds a Gate. A nil clock uses the wall clock.
func NewGate(repo Repository, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{repo: repo, now: now}
}

// Allow reports whether a new notification may be emitted: false means an
// equivalent notification was created less than window ago. A non-positive
// window falls back to DefaultWindow.
func (g *Gate) Allow(ctx context.Context, notificationType enums.NotificationType, ref EntityRef, window time.Duration) (bool, error) {
	if window <= 0 {
		window = DefaultWindow(notificationType)
	}
	if window <= 0 {
		return true, nil
	}

	exists, err := g.repo.ExistsSince(ctx, notificationType, ref, g.now().Add(-window))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check notification history")
	}
	return !exists, nil
}
