package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// CatalogService handles business logic related to catalog items.
type CatalogService struct {
	repo repositories.CatalogRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo repositories.CatalogRepository) *CatalogService {
	return &CatalogService{
		repo: repo,
	}
}

// GetAllItems retrieves all catalog items.
func (s *CatalogService) GetAllItems() ([]models.CatalogItem, error) {
	return s.repo.GetAll()
}

// GetItemByID retrieves a single catalog item by its ID.
func (s *CatalogService) GetItemByID(id string) (*models.CatalogItem, error) {
	item, err := s.repo.GetByID(id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCatalogItem, id)
	}
	return item, err
}

// PriceFor looks up the price of an item for the selected option.
func (s *CatalogService) PriceFor(itemID, option string) (decimal.Decimal, error) {
	line, err := s.ResolveLine(itemID, option, 1)
	if err != nil {
		return decimal.Zero, err
	}
	return line.UnitPrice, nil
}

// ResolveLine builds a cart line with the catalog's name and price for the option.
func (s *CatalogService) ResolveLine(itemID, option string, qty int) (models.CartLine, error) {
	if qty < 0 || qty > models.MaxLineQuantity {
		return models.CartLine{}, fmt.Errorf("%w: %w: %s quantity %d, limit %d",
			ErrInvalidRequest, models.ErrQuantityOutOfRange, itemID, qty, models.MaxLineQuantity)
	}
	item, err := s.GetItemByID(itemID)
	if err != nil {
		return models.CartLine{}, err
	}
	tier, ok := item.Tier(option)
	if !ok {
		return models.CartLine{}, fmt.Errorf("%w: %q has no option %q", ErrInvalidCatalogItem, itemID, option)
	}
	line := models.CartLine{
		ItemID:    item.ID,
		Name:      item.DisplayName(tier),
		Option:    tier.Option,
		UnitPrice: tier.Price,
		Quantity:  qty,
	}
	line.Quantity = line.Qty()
	return line, nil
}

// ResolveLines re-prices submitted lines from the catalog. Client-supplied
// names and prices are discarded and repeated ids are merged.
func (s *CatalogService) ResolveLines(lines []models.CartLine) (models.CartLines, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: at least one line item is required", ErrInvalidRequest)
	}

	merged := models.NewCart("")
	for _, l := range lines {
		if l.ItemID == "" {
			return nil, fmt.Errorf("%w: line item id is required", ErrInvalidRequest)
		}
		resolved, err := s.ResolveLine(l.ItemID, l.Option, l.Quantity)
		if err != nil {
			return nil, err
		}
		if err := merged.Add(resolved); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	return merged.Lines, nil
}
