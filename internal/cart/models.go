package cart

import (
	"strings"

	"prodavnica-api/internal/catalog"

	"github.com/shopspring/decimal"
)

// SnapshotKeyPrefix versions the persisted cart snapshots. Bumping the
// version abandons old incompatible snapshots instead of migrating them.
const SnapshotKeyPrefix = "cart:v2:"

const baseVariationPrefix = "base-"

// BaseVariationID builds the synthetic variation id that represents the base
// product as an orderable unit, so the cart can key every line by variation id.
func BaseVariationID(productID string) string {
	return baseVariationPrefix + productID
}

// IsBaseVariation reports whether a variation id is a synthetic base marker.
func IsBaseVariation(variationID string) bool {
	return strings.HasPrefix(variationID, baseVariationPrefix)
}

// ProductSnapshot captures the product fields a cart line needs after the
// catalog row changes or disappears.
type ProductSnapshot struct {
	ID       string                `json:"id"`
	Name     catalog.LocalizedText `json:"name"`
	ImageURL string                `json:"image_url"`
	Discount int                   `json:"discount"`
}

// VariationSnapshot captures the selected variation. For a base-product line
// it holds the synthetic id and the product's own price and unit.
type VariationSnapshot struct {
	ID       string                `json:"id"`
	Name     catalog.LocalizedText `json:"name"`
	Price    decimal.Decimal       `json:"price"`
	Unit     string                `json:"unit"`
	Discount int                   `json:"discount"`
	ImageURL string                `json:"image_url"`
}

type Line struct {
	Product   ProductSnapshot   `json:"product"`
	Variation VariationSnapshot `json:"variation"`
	Quantity  int               `json:"quantity"`
}

// Cart is an ordered collection of lines keyed by variation id. Insertion
// order matters for display only.
type Cart struct {
	Lines []Line `json:"lines"`
}

// Subtotal is the raw pre-discount total: variation price times quantity per
// line. Discount-aware totals are the checkout aggregator's job.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Variation.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// ItemCount sums the quantities across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) find(variationID string) int {
	for i := range c.Lines {
		if c.Lines[i].Variation.ID == variationID {
			return i
		}
	}
	return -1
}
