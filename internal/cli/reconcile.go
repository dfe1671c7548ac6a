package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/app"
)

func reconcileCmd() *cobra.Command {
	var retry bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "List paid checkouts that have no order",
		Long: `List checkout attempts whose payment succeeded but whose order could
not be recorded. With --retry each one is finalized again.

Examples:
  storefront reconcile
  storefront reconcile --retry`,
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

			ctx := cmd.Context()
			attempts, err := rt.Checkout.Unreconciled(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Found %d unreconciled checkout(s)\n", len(attempts))

			var failed int
			for _, attempt := range attempts {
				fmt.Fprintf(out, "%s  intent=%s  amount=%d %s  buyer=%s  updated=%s\n",
					attempt.ID, attempt.IntentID, attempt.Amount, attempt.Currency,
					attempt.Buyer.Email, attempt.UpdatedAt.Format("2006-01-02 15:04:05"))
				if !retry {
					continue
				}

				outcome, err := rt.Checkout.RetryFinalization(ctx, attempt.ID)
				if err != nil {
					failed++
					logger.Error("Finalization retry failed", zap.String("attempt_id", attempt.ID), zap.Error(err))
					continue
				}
				fmt.Fprintf(out, "  -> order %s: %s\n", outcome.Order.ID, outcome.Message)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d checkout(s) could not be finalized", failed, len(attempts))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&retry, "retry", false, "finalize each unreconciled checkout again")

	return cmd
}
