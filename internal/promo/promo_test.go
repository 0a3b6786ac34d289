package promo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIn_CaseInsensitive(t *testing.T) {
	codes := []PromoCode{
		{ID: "1", Code: "SALE10", DiscountPercent: 10, Active: true},
	}

	for _, input := range []string{"SALE10", "sale10", "Sale10", " sale10 "} {
		r, err := ResolveIn(codes, input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, "SALE10", r.Code)
		assert.Equal(t, 10, r.DiscountPercent)
	}
}

func TestResolveIn_InactiveExcluded(t *testing.T) {
	codes := []PromoCode{
		{ID: "1", Code: "OLD", DiscountPercent: 20, Active: false},
	}
	_, err := ResolveIn(codes, "old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveIn_FirstMatchWins(t *testing.T) {
	// Duplicate codes should not exist, but the resolver still has to pick
	// deterministically.
	codes := []PromoCode{
		{ID: "1", Code: "Sale10", DiscountPercent: 10, Active: true},
		{ID: "2", Code: "SALE10", DiscountPercent: 30, Active: true},
	}
	r, err := ResolveIn(codes, "sale10")
	require.NoError(t, err)
	assert.Equal(t, 10, r.DiscountPercent)
}

func TestResolveIn_UnknownOrEmpty(t *testing.T) {
	codes := []PromoCode{{ID: "1", Code: "SALE10", DiscountPercent: 10, Active: true}}

	_, err := ResolveIn(codes, "TYPO")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ResolveIn(codes, "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiscountRange_RejectedBeforeWrite(t *testing.T) {
	// The range check runs ahead of any database access, so a zero Conf is
	// enough to exercise it.
	var c Conf
	ctx := context.Background()

	for _, percent := range []int{-1, 91, 95, 200} {
		_, err := c.InsertPromoCode(ctx, NewPromoCode{Code: "X", DiscountPercent: percent})
		assert.ErrorIs(t, err, ErrDiscountRange, "insert with %d", percent)

		_, err = c.UpdatePromoCode(ctx, "some-id", NewPromoCode{Code: "X", DiscountPercent: percent})
		assert.ErrorIs(t, err, ErrDiscountRange, "update with %d", percent)
	}
}
