package cron

import (
	"context"
	"time"

	"github.com/angelmondragon/stockwatch-backend/internal/notifications"
	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockwatch-backend/pkg/errors"
	"github.com/angelmondragon/stockwatch-backend/pkg/logger"
)

const (
	LowStockJobName            = "low-stock-scan"
	OverdueOrderJobName        = "overdue-order-scan"
	NotificationCleanupJobName = "notification-cleanup"
)

type alertGate interface {
	Allow(ctx context.Context, notificationType enums.NotificationType, ref notifications.EntityRef, window time.Duration) (bool, error)
}

type alertEmitter interface {
	Emit(ctx context.Context, alert notifications.Alert) (*models.Notification, error)
}

// scanSummary is logged once per scan.
type scanSummary struct {
	Scanned     int
	Emitted     int
	Suppressed  int
	Transitions int
	Errors      int
	Interrupted bool
}

func (s scanSummary) fields() map[string]any {
	return map[string]any{
		"entities_scanned":    s.Scanned,
		"alerts_emitted":      s.Emitted,
		"alerts_suppressed":   s.Suppressed,
		"transitions_applied": s.Transitions,
		"errors":              s.Errors,
		"interrupted":         s.Interrupted,
	}
}

func logEntityError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	logg.Error(logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), msg, err)
}
