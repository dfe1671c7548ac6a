package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"storefront/internal/app"
)

func ordersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List recorded orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			orders, err := rt.Orders.GetAllOrders(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, order := range orders {
				fmt.Fprintf(out, "%s  %s  %s %s  %s <%s>  intent=%s\n",
					order.CreatedAt.Format("2006-01-02 15:04:05"), order.ID,
					order.Total.StringFixed(2), order.Currency,
					order.Buyer.Name, order.Buyer.Email, order.IntentID)
			}
			return nil
		},
	}
}

func leadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leads",
		Short: "List booking-call requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			leads, err := rt.Leads.GetAllLeads(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, lead := range leads {
				fmt.Fprintf(out, "%s  %s <%s>  %s  %s\n",
					lead.CreatedAt.Format("2006-01-02 15:04:05"),
					lead.Name, lead.Email, lead.Phone, lead.ServiceType)
			}
			return nil
		},
	}
}

func buildRuntime() (*app.Runtime, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.Build(cfg, logger)
}
