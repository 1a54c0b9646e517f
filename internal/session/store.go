// Package session keeps per-browser carts keyed by session id.
package session

import (
	"context"
	"sync"

	"storefront/mirror/internal/domain"
)

// Store holds a cart per session. Quantities are always positive: setting a
// quantity <= 0 removes the entry.
type Store interface {
	Cart(ctx context.Context, sessionID string) (domain.Cart, error)
	Add(ctx context.Context, sessionID, productID string, quantity int) error
	Set(ctx context.Context, sessionID, productID string, quantity int) error
	Remove(ctx context.Context, sessionID, productID string) error
}

type memoryStore struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
}

func NewMemoryStore() Store {
	return &memoryStore{carts: make(map[string]domain.Cart)}
}

func (s *memoryStore) Cart(_ context.Context, sessionID string) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(domain.Cart, len(s.carts[sessionID]))
	for id, qty := range s.carts[sessionID] {
		out[id] = qty
	}
	return out, nil
}

func (s *memoryStore) Add(_ context.Context, sessionID, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cart(sessionID)
	cart[productID] += quantity
	if cart[productID] <= 0 {
		delete(cart, productID)
	}
	return nil
}

func (s *memoryStore) Set(_ context.Context, sessionID, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cart(sessionID)
	if quantity <= 0 {
		delete(cart, productID)
		return nil
	}
	cart[productID] = quantity
	return nil
}

func (s *memoryStore) Remove(_ context.Context, sessionID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts[sessionID], productID)
	return nil
}

// cart must be called with mu held
func (s *memoryStore) cart(sessionID string) domain.Cart {
	cart, ok := s.carts[sessionID]
	if !ok {
		cart = make(domain.Cart)
		s.carts[sessionID] = cart
	}
	return cart
}
