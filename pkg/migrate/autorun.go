package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/stockwatch-backend/pkg/config"
	"github.com/angelmondragon/stockwatch-backend/pkg/db"
	"github.com/angelmondragon/stockwatch-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations when running in dev mode with the
// auto-migrate flag, or whenever the sqlite driver is in use (local runs).
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	sqliteRun := client.Driver() == config.DriverSQLite
	if !sqliteRun && (!cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "driver": client.Driver()}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running goose migrations (auto-run)")

	if err := Up(ctx, sqlDB, client.Driver()); err != nil {
		return err
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
