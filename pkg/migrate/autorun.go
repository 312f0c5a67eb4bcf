package migrate

import (
	"context"
	"fmt"

	"github.com/tradepost/tradepost-backend/pkg/config"
	"github.com/tradepost/tradepost-backend/pkg/db"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot when the environment is
// dev and TRADEPOST_AUTO_MIGRATE is set. Elsewhere cmd/migrate owns schema changes.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.App.AutoMigrate {
		return nil
	}

	files, err := List(FS())
	if err != nil {
		return fmt.Errorf("embedded migrations: %w", err)
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"migrations": len(files),
		"latest":     files[len(files)-1].Version,
	})
	logg.Info(ctx, "applying embedded migrations")

	if err := Run(ctx, sqlDB, Embedded, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "migrations applied")
	return nil
}
