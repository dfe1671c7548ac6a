package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// CartService manages the per-session cart. Lines are always priced from the
// catalog at add time.
type CartService struct {
	repo    repositories.CartRepository
	catalog *CatalogService
}

func NewCartService(repo repositories.CartRepository, catalog *CatalogService) *CartService {
	return &CartService{repo: repo, catalog: catalog}
}

// GetCart returns the session's cart, or an empty cart if none exists.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*models.Cart, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	cart, err := s.repo.Get(ctx, sessionID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.NewCart(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return cart, nil
}

// AddItem adds qty of the item at the selected option. Adding an item that is
// already in the cart increments its quantity.
func (s *CartService) AddItem(ctx context.Context, sessionID, itemID, option string, qty int) (*models.Cart, error) {
	line, err := s.catalog.ResolveLine(itemID, option, qty)
	if err != nil {
		return nil, err
	}
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := cart.Add(line); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// RemoveItem drops the line for itemID.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, itemID string) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !cart.Remove(itemID) {
		return nil, fmt.Errorf("%w: %q", ErrCartNotFound, itemID)
	}
	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// ClearCart deletes the session's cart.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
