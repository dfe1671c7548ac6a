package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply the embedded schema migrations.

Postgres databases are migrated with versioned SQL files; sqlite databases
are brought up to date with the model definitions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := database.Migrate(db, cfg.DatabaseDriver); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			logger.Info("Database migrated", zap.String("driver", cfg.DatabaseDriver))
			return nil
		},
	}
}
