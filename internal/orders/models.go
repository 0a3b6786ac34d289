package orders

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid order status")

// ParseStatus validates admin-supplied input against the order lifecycle.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Order is the persisted order header. Total is a VAT-inclusive snapshot
// taken at creation time and never recomputed.
type Order struct {
	ID            string          `json:"id"`
	Number        int64           `json:"number"`
	UserID        string          `json:"user_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone"`
	Address       Address         `json:"address"`
	Total         decimal.Decimal `json:"total"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []Item          `json:"items,omitempty"`
}

// Item is an immutable snapshot of a line at order time. Later catalog edits
// never change how a historical order displays or totals.
type Item struct {
	ID            int64           `json:"id"`
	OrderID       string          `json:"order_id"`
	ProductID     string          `json:"product_id"`
	VariationID   *string         `json:"variation_id,omitempty"`
	Name          string          `json:"name"`
	VariationName *string         `json:"variation_name,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ImageURL      string          `json:"image_url"`
}
