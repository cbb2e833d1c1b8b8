package main

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/stockwatch-backend/internal/alerts"
	"github.com/angelmondragon/stockwatch-backend/internal/cron"
	"github.com/angelmondragon/stockwatch-backend/internal/notifications"
	"github.com/angelmondragon/stockwatch-backend/internal/orders"
	"github.com/angelmondragon/stockwatch-backend/internal/products"
	"github.com/angelmondragon/stockwatch-backend/pkg/config"
	"github.com/angelmondragon/stockwatch-backend/pkg/logger"
	"github.com/angelmondragon/stockwatch-backend/pkg/metrics"
)

// buildRegistry wires the scan and retention jobs onto their schedules.
func buildRegistry(cfg config.SchedulerConfig, logg *logger.Logger, conn *gorm.DB, m *metrics.CronJobMetrics) (*cron.Registry, error) {
	notificationRepo := notifications.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	gate := notifications.NewGate(notificationRepo, nil)
	emitter := notifications.NewEmitter(notificationRepo, nil)

	lowStockDetector, err := alerts.NewLowStockDetector(products.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	overdueDetector, err := alerts.NewOverdueOrderDetector(alerts.OverdueOrderDetectorParams{Orders: orderRepo})
	if err != nil {
		return nil, err
	}

	lowStockJob, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger:   logg,
		Detector: lowStockDetector,
		Gate:     gate,
		Emitter:  emitter,
		Metrics:  m,
		Window:   cfg.LowStockWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("low stock job: %w", err)
	}
	overdueJob, err := cron.NewOverdueOrderJob(cron.OverdueOrderJobParams{
		Logger:       logg,
		Detector:     overdueDetector,
		Transitioner: orders.NewTransitioner(orderRepo),
		Gate:         gate,
		Emitter:      emitter,
		Metrics:      m,
		Window:       cfg.OverdueWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("overdue order job: %w", err)
	}
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:  logg,
		Sweeper: notifications.NewSweeper(notificationRepo, nil),
		Metrics: m,
		MaxAge:  cfg.RetentionMaxAge(),
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}

	registry := cron.NewRegistry()
	for _, entry := range []cron.Entry{
		{Spec: cfg.LowStockSchedule, Job: lowStockJob},
		{Spec: cfg.OverdueSchedule, Job: overdueJob},
		{Spec: cfg.RetentionSchedule, Job: cleanupJob},
	} {
		if err := registry.Register(entry.Spec, entry.Job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
