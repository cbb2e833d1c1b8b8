package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/stockwatch-backend/internal/alerts"
	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
	"github.com/angelmondragon/stockwatch-backend/pkg/logger"
	"github.com/angelmondragon/stockwatch-backend/pkg/metrics"
)

type lowStockDetector interface {
	Detect(ctx context.Context) ([]models.Product, error)
}

type LowStockJobParams struct {
	Logger   *logger.Logger
	Detector lowStockDetector
	Gate     alertGate
	Emitter  alertEmitter
	Metrics  *metrics.CronJobMetrics
	// Window defaults to one hour.
	Window time.Duration
}

func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Detector == nil {
		return nil, fmt.Errorf("low stock detector required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("dedup gate required")
	}
	if params.Emitter == nil {
		return nil, fmt.Errorf("notification emitter required")
	}
	window := params.Window
	if window <= 0 {
		window = time.Hour
	}
	return &lowStockJob{
		logg:     params.Logger,
		detector: params.Detector,
		gate:     params.Gate,
		emitter:  params.Emitter,
		metrics:  params.Metrics,
		window:   window,
	}, nil
}

type lowStockJob struct {
	logg     *logger.Logger
	detector lowStockDetector
	gate     alertGate
	emitter  alertEmitter
	metrics  *metrics.CronJobMetrics
	window   time.Duration
}

func (j *lowStockJob) Name() string { return LowStockJobName }

func (j *lowStockJob) Run(ctx context.Context) error {
	products, err := j.detector.Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect low stock products: %w", err)
	}

	summary := scanSummary{Scanned: len(products)}
	j.metrics.AddScanned(j.Name(), len(products))

	var errs error
	for _, product := range products {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		entityCtx := j.logg.WithFields(context.WithoutCancel(ctx), map[string]any{
			"product_id": product.ID,
			"sku":        product.SKU,
		})
		if err := j.process(entityCtx, product, &summary); err != nil {
			summary.Errors++
			j.metrics.IncAlert(j.Name(), metrics.OutcomeFailed)
			logEntityError(entityCtx, j.logg, "low stock alert failed", err)
			errs = multierr.Append(errs, fmt.Errorf("product %s: %w", product.ID, err))
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, summary.fields()), "low stock scan complete")
	return errs
}

func (j *lowStockJob) process(ctx context.Context, product models.Product, summary *scanSummary) error {
	alert := alerts.LowStockAlert(product)
	allowed, err := j.gate.Allow(ctx, alert.Type, alert.Ref(), j.window)
	if err != nil {
		return err
	}
	if !allowed {
		summary.Suppressed++
		j.metrics.IncAlert(j.Name(), metrics.OutcomeSuppressed)
		j.logg.Debug(ctx, "low stock alert suppressed by dedup window")
		return nil
	}
	if _, err := j.emitter.Emit(ctx, alert); err != nil {
		return err
	}
	summary.Emitted++
	j.metrics.IncAlert(j.Name(), metrics.OutcomeEmitted)
	return nil
}
