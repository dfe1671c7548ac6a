package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the service catalog with its price tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := services.NewCatalogService(repositories.NewStaticCatalogRepository(models.DefaultCatalog()))
			items, err := catalog.GetAllItems()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, item := range items {
				fmt.Fprintf(out, "%s  %s\n", item.ID, item.Description)
				for _, tier := range item.Tiers {
					fmt.Fprintf(out, "  %-6s %-40s %s\n", tier.Option, item.DisplayName(tier), tier.Price.StringFixed(2))
				}
			}
			return nil
		},
	}
}
