package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/app"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			rt, err := app.Build(cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if rt.MQ != nil {
				go func() {
					logger.Info("Starting notification worker")
					if err := rt.RunWorker(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("Notification worker stopped", zap.Error(err))
					}
				}()
			}

			server := app.NewApp(rt)
			listenErr := make(chan error, 1)
			go func() {
				logger.Info("Starting server", zap.String("port", cfg.AppPort))
				listenErr <- server.Listen(cfg.AppPort)
			}()

			select {
			case err := <-listenErr:
				return err
			case <-ctx.Done():
			}

			logger.Info("Shutting down server...")
			if err := server.Shutdown(); err != nil {
				logger.Error("Error during Fiber shutdown", zap.Error(err))
			}
			logger.Info("Server gracefully stopped")
			return nil
		},
	}
}
