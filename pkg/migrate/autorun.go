package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/splitpay-backend/pkg/config"
	"github.com/angelmondragon/splitpay-backend/pkg/db"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot when running in dev with
// SPLITPAY_AUTO_MIGRATE set. Elsewhere it only warns when the schema is behind.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	autoRun := cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate
	if client == nil {
		if autoRun {
			return fmt.Errorf("auto migrate requires a database client")
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, Embedded())
	if err != nil {
		return err
	}
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if !autoRun {
		pending, err := runner.Pending(ctx)
		if err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "could not check migration state")
			return nil
		}
		if pending {
			logg.Warn(ctx, "database schema has pending migrations; run cmd/migrate")
		}
		return nil
	}

	results, err := runner.Run(ctx, "up")
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(results)), "dev migrations applied")
	return nil
}
