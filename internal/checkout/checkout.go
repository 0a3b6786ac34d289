// Package checkout turns cart lines, promo discounts, VAT and delivery rules
// into order totals.
package checkout

import (
	"prodavnica-api/internal/cart"
	"prodavnica-api/internal/pricing"
	"prodavnica-api/internal/promo"

	"github.com/shopspring/decimal"
)

// VATRate is the fixed Serbian PDV rate of 20%.
var VATRate = decimal.RequireFromString("0.20")

// DeliveryRule grants free delivery at or above a subtotal threshold and a
// flat fee below it.
type DeliveryRule struct {
	FreeAbove decimal.Decimal
	Fee       decimal.Decimal
}

// EstimateRule is shown on the cart page; FinalRule is the authoritative rule
// applied at checkout. The two deliberately differ: the cart preview is an
// estimate, the checkout total is the value persisted on the order.
var (
	EstimateRule = DeliveryRule{
		FreeAbove: decimal.NewFromInt(3000),
		Fee:       decimal.NewFromInt(199),
	}
	FinalRule = DeliveryRule{
		FreeAbove: decimal.NewFromInt(5000),
		Fee:       decimal.NewFromInt(800),
	}
)

// Summary is the priced breakdown of a cart. All amounts are RSD rounded to
// two decimals.
type Summary struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	PromoCode     string          `json:"promo_code,omitempty"`
	PromoDiscount decimal.Decimal `json:"promo_discount"`
	VAT           decimal.Decimal `json:"vat"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	Total         decimal.Decimal `json:"total"`
}

// LineQuote resolves the effective unit price of a cart line. Base-product
// lines (synthetic "base-" variation id) carry the product discount; real
// variation lines carry their own discount, falling back to the product's.
func LineQuote(l cart.Line) pricing.Quote {
	if cart.IsBaseVariation(l.Variation.ID) {
		return pricing.Apply(l.Variation.Price, l.Product.Discount)
	}
	return pricing.Apply(l.Variation.Price, pricing.ResolveDiscount(l.Product.Discount, l.Variation.Discount))
}

// Summarize prices a cart under a delivery rule. The promo discount is
// subtracted before VAT, so the discount carries through to the persisted
// total.
func Summarize(c *cart.Cart, resolved *promo.Resolved, rule DeliveryRule) Summary {
	subtotal := decimal.Zero
	for _, l := range c.Lines {
		q := LineQuote(l)
		subtotal = subtotal.Add(q.Effective.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)

	s := Summary{Subtotal: subtotal, PromoDiscount: decimal.Zero}
	if resolved != nil && resolved.DiscountPercent > 0 {
		s.PromoCode = resolved.Code
		s.PromoDiscount = subtotal.
			Mul(decimal.NewFromInt(int64(resolved.DiscountPercent))).
			Div(decimal.NewFromInt(100)).
			Round(2)
	}

	discounted := subtotal.Sub(s.PromoDiscount)
	s.VAT = discounted.Mul(VATRate).Round(2)

	s.DeliveryFee = rule.Fee
	if subtotal.GreaterThanOrEqual(rule.FreeAbove) {
		s.DeliveryFee = decimal.Zero
	}

	s.Total = discounted.Add(s.VAT).Add(s.DeliveryFee).Round(2)
	return s
}
