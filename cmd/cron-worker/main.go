package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/stockwatch-backend/internal/cron"
	"github.com/angelmondragon/stockwatch-backend/pkg/config"
	"github.com/angelmondragon/stockwatch-backend/pkg/db"
	"github.com/angelmondragon/stockwatch-backend/pkg/instance"
	"github.com/angelmondragon/stockwatch-backend/pkg/logger"
	"github.com/angelmondragon/stockwatch-backend/pkg/metrics"
	"github.com/angelmondragon/stockwatch-backend/pkg/migrate"
	"github.com/angelmondragon/stockwatch-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run wires the worker and blocks until shutdown. Failures are logged before
// returning so deferred closes still run ahead of the exit.
func run() error {
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		return err
	}

	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid scheduler timezone", err)
		return err
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		return err
	}

	checks := map[string]pinger{"database": dbClient}

	var locks cron.LockProvider
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		provider, err := cron.NewRedisLockProvider(redisClient, cfg.Service.Kind, lockEnv(cfg.App.Env), cfg.Scheduler.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock provider", err)
			return err
		}
		locks = provider
		checks["redis"] = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured; jobs are only guarded within this process")
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	registry, err := buildRegistry(cfg.Scheduler, logg, dbClient.DB(), metricsCollector)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:          logg,
		Registry:        registry,
		Locks:           locks,
		Metrics:         metricsCollector,
		Location:        loc,
		RunOnStart:      cfg.Scheduler.RunOnStart,
		ShutdownTimeout: cfg.Scheduler.ShutdownTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
		"timezone":    loc.String(),
	})

	if cfg.Metrics.Addr != "" {
		go func() {
			err := runOpsHTTPServer(ctx, opsHTTPOpts{
				addr:     cfg.Metrics.Addr,
				checks:   checks,
				gatherer: prometheus.DefaultGatherer,
				onListen: func(addr string) {
					logg.Info(logg.WithField(ctx, "addr", addr), "ops http server listening")
				},
			})
			if err != nil {
				logg.Error(ctx, "ops http server stopped", err)
			}
		}()
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		return err
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

func lockEnv(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
