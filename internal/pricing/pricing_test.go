package pricing

import (
	"testing"

	"prodavnica-api/internal/catalog"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		discount int
		want     string
	}{
		{"no discount", "250", 0, "250"},
		{"plain percent", "100", 20, "80"},
		{"rounds to two decimals", "99.99", 15, "84.99"},
		{"negative clamped to zero", "100", -5, "100"},
		{"over hundred clamped", "100", 150, "0"},
		{"full discount", "100", 100, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Apply(dec(tt.price), tt.discount)
			assert.True(t, q.Effective.Equal(dec(tt.want)), "effective = %s, want %s", q.Effective, tt.want)
			assert.True(t, q.Original.Equal(dec(tt.price)))
			assert.True(t, q.Effective.LessThanOrEqual(q.Original))
		})
	}
}

func TestForBase(t *testing.T) {
	price := dec("120")
	p := catalog.Product{ID: "p1", Price: &price, Discount: 25}

	q, err := ForBase(p)
	require.NoError(t, err)
	assert.True(t, q.Effective.Equal(dec("90")))
	assert.True(t, q.Original.Equal(dec("120")))
}

func TestForBase_NoPrice(t *testing.T) {
	_, err := ForBase(catalog.Product{ID: "p1"})
	assert.ErrorIs(t, err, ErrNoBasePrice)
}

func TestForVariation_OwnDiscountWins(t *testing.T) {
	price := dec("500")
	p := catalog.Product{ID: "p1", Price: &price, Discount: 50}
	v := catalog.Variation{ID: "v1", ProductID: "p1", Price: dec("200"), Discount: 10}

	q := ForVariation(p, v)

	// The variation discount applies alone; the product's 50% never combines.
	assert.True(t, q.Effective.Equal(dec("180")), "got %s", q.Effective)
}

func TestForVariation_FallsBackToProductDiscount(t *testing.T) {
	p := catalog.Product{ID: "p1", Discount: 30}
	v := catalog.Variation{ID: "v1", ProductID: "p1", Price: dec("100")}

	q := ForVariation(p, v)
	assert.True(t, q.Effective.Equal(dec("70")), "got %s", q.Effective)
}

func TestResolveDiscount(t *testing.T) {
	assert.Equal(t, 10, ResolveDiscount(50, 10), "variation discount wins")
	assert.Equal(t, 30, ResolveDiscount(30, 0), "fallback to product discount")
	assert.Equal(t, 30, ResolveDiscount(30, -5), "non-positive variation discount falls back")
	assert.Equal(t, 0, ResolveDiscount(0, 0))
}

func TestForVariation_NoDiscountAnywhere(t *testing.T) {
	p := catalog.Product{ID: "p1"}
	v := catalog.Variation{ID: "v1", Price: dec("42.50")}

	q := ForVariation(p, v)
	assert.True(t, q.Effective.Equal(dec("42.50")))
	assert.Equal(t, 0, q.DiscountPercent)
}
