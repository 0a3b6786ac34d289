package cart

import (
	"context"
	"testing"

	"prodavnica-api/internal/catalog"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "user-1"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(NewMemoryPersister())
	require.NoError(t, err)
	return s
}

func snapshot(variationID, price string) (ProductSnapshot, VariationSnapshot) {
	p := ProductSnapshot{ID: "p1", Name: catalog.LocalizedText{SR: "Jabuka", EN: "Apple"}}
	v := VariationSnapshot{
		ID:    variationID,
		Name:  catalog.LocalizedText{SR: "1kg", EN: "1kg"},
		Price: decimal.RequireFromString(price),
	}
	return p, v
}

func TestAddItem_IncrementsExistingLine(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, v := snapshot("v1", "100")

	_, err := s.AddItem(ctx, userID, p, v)
	require.NoError(t, err)
	c, err := s.AddItem(ctx, userID, p, v)
	require.NoError(t, err)

	require.Len(t, c.Lines, 1, "same variation id must not duplicate the line")
	assert.Equal(t, 2, c.Lines[0].Quantity)
	assert.Equal(t, 2, c.ItemCount())
}

func TestAddItem_CountsAcrossDistinctVariations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, v1 := snapshot("v1", "100")
	_, v2 := snapshot("v2", "60")

	// Five adds over two distinct variations.
	for _, v := range []VariationSnapshot{v1, v1, v2, v1, v2} {
		_, err := s.AddItem(ctx, userID, p, v)
		require.NoError(t, err)
	}

	c, err := s.Get(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2)
	assert.Equal(t, 5, c.ItemCount())
}

func TestAddItem_RejectsNonPositivePrice(t *testing.T) {
	s := newTestStore(t)
	p, v := snapshot("v1", "0")

	_, err := s.AddItem(context.Background(), userID, p, v)
	assert.ErrorIs(t, err, ErrNotOrderable)
}

func TestUpdateQuantity_NonPositiveRemoves(t *testing.T) {
	for _, qty := range []int{0, -5} {
		s := newTestStore(t)
		ctx := context.Background()
		p, v := snapshot("v1", "100")
		_, err := s.AddItem(ctx, userID, p, v)
		require.NoError(t, err)

		c, err := s.UpdateQuantity(ctx, userID, "v1", qty)
		require.NoError(t, err)
		assert.Empty(t, c.Lines, "quantity %d must remove the line", qty)
	}
}

func TestUpdateQuantity_SetsValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, v := snapshot("v1", "100")
	_, err := s.AddItem(ctx, userID, p, v)
	require.NoError(t, err)

	c, err := s.UpdateQuantity(ctx, userID, "v1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Lines[0].Quantity)
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	s := newTestStore(t)
	c, err := s.RemoveItem(context.Background(), userID, "missing")
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
}

func TestSubtotal_IsRawAndIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, v := snapshot("v1", "99.90")
	p.Discount = 50 // subtotal ignores discounts entirely
	_, err := s.AddItem(ctx, userID, p, v)
	require.NoError(t, err)
	c, err := s.UpdateQuantity(ctx, userID, "v1", 3)
	require.NoError(t, err)

	want := decimal.RequireFromString("299.70")
	assert.True(t, c.Subtotal().Equal(want), "got %s", c.Subtotal())
	assert.True(t, c.Subtotal().Equal(want), "repeat call must match")
}

func TestPersistence_SurvivesNewStore(t *testing.T) {
	persister := NewMemoryPersister()
	s1, err := NewStore(persister)
	require.NoError(t, err)
	p, v := snapshot("v1", "100")
	_, err = s1.AddItem(context.Background(), userID, p, v)
	require.NoError(t, err)

	// A fresh store over the same persister sees the snapshot, like a reload.
	s2, err := NewStore(persister)
	require.NoError(t, err)
	c, err := s2.Get(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "v1", c.Lines[0].Variation.ID)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, v := snapshot("v1", "100")
	_, err := s.AddItem(ctx, userID, p, v)
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, userID))
	c, err := s.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
}

func TestBaseVariationID(t *testing.T) {
	id := BaseVariationID("p42")
	assert.Equal(t, "base-p42", id)
	assert.True(t, IsBaseVariation(id))
	assert.False(t, IsBaseVariation("v42"))
}
