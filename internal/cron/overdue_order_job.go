package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/stockwatch-backend/internal/alerts"
	"github.com/angelmondragon/stockwatch-backend/internal/notifications"
	"github.com/angelmondragon/stockwatch-backend/internal/orders"
	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
	"github.com/angelmondragon/stockwatch-backend/pkg/logger"
	"github.com/angelmondragon/stockwatch-backend/pkg/metrics"
)

type overdueOrderDetector interface {
	Detect(ctx context.Context) ([]models.Order, error)
}

type orderTransitioner interface {
	Transition(ctx context.Context, order models.Order, to enums.OrderStatus) (orders.TransitionResult, error)
}

type OverdueOrderJobParams struct {
	Logger       *logger.Logger
	Detector     overdueOrderDetector
	Transitioner orderTransitioner
	Gate         alertGate
	Emitter      alertEmitter
	Metrics      *metrics.CronJobMetrics
	// Window defaults to notifications.OverdueOrderWindow.
	Window time.Duration
}

func NewOverdueOrderJob(params OverdueOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Detector == nil {
		return nil, fmt.Errorf("overdue order detector required")
	}
	if params.Transitioner == nil {
		return nil, fmt.Errorf("order transitioner required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("dedup gate required")
	}
	if params.Emitter == nil {
		return nil, fmt.Errorf("notification emitter required")
	}
	window := params.Window
	if window <= 0 {
		window = notifications.OverdueOrderWindow
	}
	return &overdueOrderJob{
		logg:         params.Logger,
		detector:     params.Detector,
		transitioner: params.Transitioner,
		gate:         params.Gate,
		emitter:      params.Emitter,
		metrics:      params.Metrics,
		window:       window,
	}, nil
}

type overdueOrderJob struct {
	logg         *logger.Logger
	detector     overdueOrderDetector
	transitioner orderTransitioner
	gate         alertGate
	emitter      alertEmitter
	metrics      *metrics.CronJobMetrics
	window       time.Duration
}

func (j *overdueOrderJob) Name() string { return OverdueOrderJobName }

func (j *overdueOrderJob) Run(ctx context.Context) error {
	overdue, err := j.detector.Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect overdue orders: %w", err)
	}

	summary := scanSummary{Scanned: len(overdue)}
	j.metrics.AddScanned(j.Name(), len(overdue))

	var errs error
	for _, order := range overdue {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		entityCtx := j.logg.WithFields(context.WithoutCancel(ctx), map[string]any{
			"order_id":   order.ID,
			"product_id": order.ProductID,
			"status":     order.Status,
		})
		if err := j.process(entityCtx, order, &summary); err != nil {
			summary.Errors++
			j.metrics.IncAlert(j.Name(), metrics.OutcomeFailed)
			logEntityError(entityCtx, j.logg, "overdue order processing failed", err)
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, summary.fields()), "overdue order scan complete")
	return errs
}

// process transitions the order before consulting the dedup gate; the status
// change is never suppressed by notification history.
func (j *overdueOrderJob) process(ctx context.Context, order models.Order, summary *scanSummary) error {
	if order.Status != enums.OrderStatusOverdue {
		result, err := j.transitioner.Transition(ctx, order, enums.OrderStatusOverdue)
		if err != nil {
			return err
		}
		switch result {
		case orders.TransitionApplied:
			summary.Transitions++
			j.metrics.IncTransition(enums.OrderStatusOverdue.String())
		case orders.TransitionSkipped:
			j.metrics.IncAlert(j.Name(), metrics.OutcomeSkipped)
			j.logg.Debug(ctx, "order no longer eligible for overdue; skipping")
			return nil
		}
		order.Status = enums.OrderStatusOverdue
	}

	alert := alerts.OverdueOrderAlert(order)
	allowed, err := j.gate.Allow(ctx, alert.Type, alert.Ref(), j.window)
	if err != nil {
		return err
	}
	if !allowed {
		summary.Suppressed++
		j.metrics.IncAlert(j.Name(), metrics.OutcomeSuppressed)
		j.logg.Debug(ctx, "overdue alert suppressed by dedup window")
		return nil
	}
	if _, err := j.emitter.Emit(ctx, alert); err != nil {
		return err
	}
	summary.Emitted++
	j.metrics.IncAlert(j.Name(), metrics.OutcomeEmitted)
	return nil
}
