// Package cart stores per-user shopping carts.
//
// A cart is a set of lines keyed by (user_id, product_id). Upsert inserts a
// new line or increments the quantity of an existing one; both paths are
// serialized per user so concurrent adds never lose an increment.
package cart

import (
	"context"
	"sync"
)

// Line is one cart entry for a user.
type Line struct {
	ProductID int     `json:"productId"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Subtotal returns price times quantity for the line.
func (l Line) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

// Store persists carts keyed by (user_id, product_id).
type Store interface {
	// Lines returns the user's cart lines in insertion order.
	Lines(ctx context.Context, userID string) ([]Line, error)

	// Upsert inserts the line or, if the product is already in the user's
	// cart, adds the quantity to the existing line.
	Upsert(ctx context.Context, userID string, line Line) error

	// Remove deletes the user's line for productID. It reports whether a
	// line existed.
	Remove(ctx context.Context, userID string, productID int) (bool, error)
}

// MemoryStore is an in-memory Store for tests and database-less runs.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string][]Line
}

// NewMemoryStore creates an empty in-memory cart store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]Line)}
}

// Lines implements Store.
func (s *MemoryStore) Lines(ctx context.Context, userID string) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[userID]
	out := make([]Line, len(lines))
	copy(out, lines)
	return out, nil
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(ctx context.Context, userID string, line Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[userID]
	for i := range lines {
		if lines[i].ProductID == line.ProductID {
			lines[i].Quantity += line.Quantity
			return nil
		}
	}
	s.carts[userID] = append(lines, line)
	return nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(ctx context.Context, userID string, productID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			s.carts[userID] = append(lines[:i], lines[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
