package repositories

import (
	"context"
	"fmt"
	"sync"

	"storefront/internal/models"
)

// MemoryCartRepository is an in-memory implementation of CartRepository.
type MemoryCartRepository struct {
	carts map[string]models.Cart
	mu    sync.RWMutex
}

// NewMemoryCartRepository creates a new instance of MemoryCartRepository.
func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{
		carts: make(map[string]models.Cart),
	}
}

// Get returns a copy of the cart stored for sessionID.
func (r *MemoryCartRepository) Get(_ context.Context, sessionID string) (*models.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[sessionID]
	if !ok {
		return nil, fmt.Errorf("cart for session %s: %w", sessionID, ErrNotFound)
	}
	cart.Lines = append(models.CartLines{}, cart.Lines...)
	return &cart, nil
}

// Save stores a copy of the cart.
func (r *MemoryCartRepository) Save(_ context.Context, cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *cart
	stored.Lines = append(models.CartLines{}, cart.Lines...)
	r.carts[cart.SessionID] = stored
	return nil
}

// Delete removes the cart for sessionID. Deleting a missing cart is not an error.
func (r *MemoryCartRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, sessionID)
	return nil
}
