package cart

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotOrderable = errors.New("variation is not orderable")

// Persister loads and saves cart snapshots under a key. Implementations:
// RedisPersister in production, MemoryPersister in tests.
type Persister interface {
	// Load returns nil without error when no snapshot exists for the key.
	Load(ctx context.Context, key string) (*Cart, error)
	Save(ctx context.Context, key string, c *Cart) error
	Delete(ctx context.Context, key string) error
}

// Store is the per-user cart: every mutation is a load-modify-save cycle
// against the persister, so the snapshot survives restarts.
type Store struct {
	p Persister
}

func NewStore(p Persister) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("persister is nil")
	}
	return &Store{p: p}, nil
}

func snapshotKey(userID string) string {
	return SnapshotKeyPrefix + userID
}

// Get returns the user's cart, empty when no snapshot exists.
func (s *Store) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.p.Load(ctx, snapshotKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if c == nil {
		c = &Cart{}
	}
	return c, nil
}

// AddItem appends a new line with quantity 1, or increments the quantity when
// a line with the same variation id already exists.
func (s *Store) AddItem(ctx context.Context, userID string, product ProductSnapshot, variation VariationSnapshot) (*Cart, error) {
	if !variation.Price.IsPositive() {
		return nil, ErrNotOrderable
	}
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if i := c.find(variation.ID); i >= 0 {
		c.Lines[i].Quantity++
	} else {
		c.Lines = append(c.Lines, Line{Product: product, Variation: variation, Quantity: 1})
	}

	if err := s.p.Save(ctx, snapshotKey(userID), c); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return c, nil
}

// RemoveItem deletes the line with the given variation id; absent ids are a
// no-op.
func (s *Store) RemoveItem(ctx context.Context, userID, variationID string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	i := c.find(variationID)
	if i < 0 {
		return c, nil
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)

	if err := s.p.Save(ctx, snapshotKey(userID), c); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return c, nil
}

// UpdateQuantity sets a line's quantity. A non-positive quantity removes the
// line, matching RemoveItem.
func (s *Store) UpdateQuantity(ctx context.Context, userID, variationID string, qty int) (*Cart, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, userID, variationID)
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	i := c.find(variationID)
	if i < 0 {
		return c, nil
	}
	c.Lines[i].Quantity = qty

	if err := s.p.Save(ctx, snapshotKey(userID), c); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return c, nil
}

// Clear drops the user's snapshot entirely.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.p.Delete(ctx, snapshotKey(userID)); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
