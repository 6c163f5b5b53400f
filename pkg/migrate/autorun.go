package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/db"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	return Apply(ctx, client, DefaultDir, logg)
}

// Apply brings the schema up to date. The SQL migrations target postgres, so
// sqlite databases are migrated from the gorm models instead.
func Apply(ctx context.Context, client *db.Client, dir string, logg *logger.Logger) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}
	ctx = logg.WithFields(ctx, map[string]any{"driver": client.Driver(), "dir": dir})

	if client.Driver() == config.DBDriverSQLite {
		logg.Info(ctx, "running gorm auto-migrate")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("auto-migrate models: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	runner, err := NewRunner(sqlDB, client.Driver(), dir)
	if err != nil {
		return err
	}
	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	for _, step := range applied {
		logg.Info(logg.WithField(ctx, "version", step.Version), "applied migration "+step.Path)
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "goose migrations completed")
	return nil
}
