package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/stockwatch-backend/internal/notifications"
	"github.com/angelmondragon/stockwatch-backend/pkg/logger"
	"github.com/angelmondragon/stockwatch-backend/pkg/metrics"
)

type NotificationCleanupJobParams struct {
	Logger  *logger.Logger
	Sweeper notificationSweeper
	Metrics *metrics.CronJobMetrics
	// MaxAge defaults to notifications.DefaultRetention.
	MaxAge time.Duration
}

type notificationSweeper interface {
	Sweep(ctx context.Context, maxAge time.Duration) (int64, error)
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("notification sweeper required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = notifications.DefaultRetention
	}
	return &notificationCleanupJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		metrics: params.Metrics,
		maxAge:  maxAge,
	}, nil
}

type notificationCleanupJob struct {
	logg    *logger.Logger
	sweeper notificationSweeper
	metrics *metrics.CronJobMetrics
	maxAge  time.Duration
}

func (j *notificationCleanupJob) Name() string { return NotificationCleanupJobName }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	deleted, err := j.sweeper.Sweep(ctx, j.maxAge)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	j.metrics.AddSwept(deleted)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"retention":    j.maxAge.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
