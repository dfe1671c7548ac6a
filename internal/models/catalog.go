package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PriceTier is the fixed price of one selectable option of a catalog item.
// The option picks a tier; it is never multiplied into the price.
type PriceTier struct {
	Option string          `json:"option"`
	Label  string          `json:"label"`
	Price  decimal.Decimal `json:"price"`
}

// CatalogItem represents a consulting offering in the storefront.
type CatalogItem struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"` // may contain {option}
	Description   string      `json:"description"`
	OptionLabel   string      `json:"option_label"`
	DefaultOption string      `json:"default_option"`
	Tiers         []PriceTier `json:"tiers"`
}

// Tier returns the price tier for option. An empty option selects the default tier.
func (i CatalogItem) Tier(option string) (PriceTier, bool) {
	if option == "" {
		option = i.DefaultOption
	}
	for _, t := range i.Tiers {
		if t.Option == option {
			return t, true
		}
	}
	return PriceTier{}, false
}

// DisplayName resolves the name template for the given tier.
func (i CatalogItem) DisplayName(tier PriceTier) string {
	return strings.ReplaceAll(i.Name, "{option}", tier.Label)
}

// DefaultCatalog returns the offerings shipped with the storefront.
// The tech item is a free consultation placeholder and prices at zero on purpose.
func DefaultCatalog() []CatalogItem {
	return []CatalogItem{
		{
			ID:            "artist-management",
			Name:          "Artist Management ({option})",
			Description:   "Professional management of artists with flexible monthly tiers.",
			OptionLabel:   "Choose Duration",
			DefaultOption: "3",
			Tiers: []PriceTier{
				{Option: "3", Label: "3 months", Price: decimal.NewFromInt(999)},
				{Option: "6", Label: "6 months", Price: decimal.NewFromInt(1899)},
				{Option: "9", Label: "9 months", Price: decimal.NewFromInt(2699)},
				{Option: "12", Label: "12 months", Price: decimal.NewFromInt(3399)},
			},
		},
		{
			ID:            "consulting",
			Name:          "General Consulting ({option})",
			Description:   "Expert advice and solutions for various business challenges.",
			OptionLabel:   "Choose Hours",
			DefaultOption: "1",
			Tiers: []PriceTier{
				{Option: "1", Label: "1 hr", Price: decimal.NewFromInt(199)},
				{Option: "4", Label: "4 hrs", Price: decimal.NewFromInt(749)},
				{Option: "8", Label: "8 hrs", Price: decimal.NewFromInt(1399)},
			},
		},
		{
			ID:            "tech",
			Name:          "Tech / Development ({option})",
			Description:   "End-to-end software development and technical solutions.",
			OptionLabel:   "Consultation",
			DefaultOption: "free",
			Tiers: []PriceTier{
				{Option: "free", Label: "Free Consultation", Price: decimal.Zero},
			},
		},
	}
}
