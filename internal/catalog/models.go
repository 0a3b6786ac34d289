package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocalizedText pairs the Serbian and English renderings of a storefront
// string. Serbian is the primary locale.
type LocalizedText struct {
	SR string `json:"sr"`
	EN string `json:"en"`
}

type Category struct {
	ID        string        `json:"id"`
	Name      LocalizedText `json:"name"`
	Slug      string        `json:"slug"`
	ParentID  *string       `json:"parent_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Product is a catalog row. Price and Unit describe the product sold as-is;
// when Variations is non-empty the storefront prefers variation pricing.
type Product struct {
	ID            string           `json:"id"`
	Name          LocalizedText    `json:"name"`
	Description   LocalizedText    `json:"description"`
	ImageURL      string           `json:"image_url"`
	CategoryID    string           `json:"category_id"`
	SubcategoryID *string          `json:"subcategory_id,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Unit          string           `json:"unit,omitempty"`
	Discount      int              `json:"discount"`
	Variations    []Variation      `json:"variations,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Variation is a purchasable sub-option of a product (e.g. a pack size). A
// variation with a non-positive price is never orderable.
type Variation struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Name      LocalizedText   `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Unit      string          `json:"unit"`
	InStock   bool            `json:"in_stock"`
	ImageURL  *string         `json:"image_url,omitempty"`
	Active    bool            `json:"active"`
	Discount  int             `json:"discount"`
}

// Orderable reports whether the variation may be added to a cart.
func (v Variation) Orderable() bool {
	return v.Active && v.InStock && v.Price.IsPositive()
}

type NewCategory struct {
	NameSR   string  `json:"name_sr" validate:"required"`
	NameEN   string  `json:"name_en" validate:"required"`
	Slug     string  `json:"slug" validate:"required"`
	ParentID *string `json:"parent_id"`
}

type NewProduct struct {
	NameSR        string  `json:"name_sr" validate:"required"`
	NameEN        string  `json:"name_en" validate:"required"`
	DescriptionSR string  `json:"description_sr"`
	DescriptionEN string  `json:"description_en"`
	ImageURL      string  `json:"image_url"`
	CategoryID    string  `json:"category_id" validate:"required"`
	SubcategoryID *string `json:"subcategory_id"`
	Price         *string `json:"price"`
	Unit          string  `json:"unit"`
	Discount      int     `json:"discount" validate:"min=0,max=100"`
}

type NewVariation struct {
	NameSR   string  `json:"name_sr" validate:"required"`
	NameEN   string  `json:"name_en" validate:"required"`
	Price    string  `json:"price" validate:"required"`
	Unit     string  `json:"unit"`
	InStock  bool    `json:"in_stock"`
	ImageURL *string `json:"image_url"`
	Active   bool    `json:"active"`
	Discount int     `json:"discount" validate:"min=0,max=100"`
}
