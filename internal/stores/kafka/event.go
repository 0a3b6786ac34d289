package kafka

import "time"

const TopicOrderPlaced = "prodavnica.order.placed"

type OrderPlacedEvent struct {
	OrderID     string    `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	UserID      string    `json:"user_id"`
	Total       string    `json:"total"`
	ItemCount   int       `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
}
