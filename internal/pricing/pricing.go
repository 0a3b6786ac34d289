// Package pricing computes effective unit prices for catalog selections.
//
// A variation's own discount takes precedence over the owning product's
// discount; the product discount only applies as a fallback when the
// variation carries none. The two are never combined.
package pricing

import (
	"errors"

	"prodavnica-api/internal/catalog"

	"github.com/shopspring/decimal"
)

var ErrNoBasePrice = errors.New("product has no base price")

var hundred = decimal.NewFromInt(100)

// Quote pairs the effective unit price with the pre-discount price, so the
// storefront can render a strikethrough original.
type Quote struct {
	Effective       decimal.Decimal `json:"effective"`
	Original        decimal.Decimal `json:"original"`
	DiscountPercent int             `json:"discount_percent"`
}

// Apply computes a quote for a raw price and a discount percent. Discounts
// are clamped to [0, 100] so malformed admin input can never yield a
// negative price.
func Apply(price decimal.Decimal, discountPercent int) Quote {
	d := clamp(discountPercent)
	q := Quote{Original: price, Effective: price, DiscountPercent: d}
	if d > 0 {
		factor := hundred.Sub(decimal.NewFromInt(int64(d))).Div(hundred)
		q.Effective = price.Mul(factor).Round(2)
	}
	return q
}

// ForBase prices a product sold as-is, without a variation.
func ForBase(p catalog.Product) (Quote, error) {
	if p.Price == nil {
		return Quote{}, ErrNoBasePrice
	}
	return Apply(*p.Price, p.Discount), nil
}

// ResolveDiscount applies the precedence rule: a variation's own discount
// wins; the product discount is the fallback when the variation carries none.
func ResolveDiscount(productDiscount, variationDiscount int) int {
	if variationDiscount > 0 {
		return variationDiscount
	}
	return productDiscount
}

// ForVariation prices a variation, falling back to the product discount when
// the variation has none of its own.
func ForVariation(p catalog.Product, v catalog.Variation) Quote {
	return Apply(v.Price, ResolveDiscount(p.Discount, v.Discount))
}

func clamp(d int) int {
	if d < 0 {
		return 0
	}
	if d > 100 {
		return 100
	}
	return d
}
