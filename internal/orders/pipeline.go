package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"prodavnica-api/internal/cart"
	"prodavnica-api/internal/checkout"
	"prodavnica-api/internal/notify"
	"prodavnica-api/internal/promo"
	"prodavnica-api/internal/stores/kafka"
	"prodavnica-api/pkg/logkey"

	"github.com/google/uuid"
)

var ErrEmptyCart = errors.New("cart is empty")

// Writer is the slice of the order store the pipeline needs.
type Writer interface {
	InsertOrder(ctx context.Context, o *Order) error
	InsertItems(ctx context.Context, orderID string, items []Item) error
	DeleteOrder(ctx context.Context, orderID string) error
}

// CartStore is the slice of the cart store the pipeline needs.
type CartStore interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
	Clear(ctx context.Context, userID string) error
}

type Notifier interface {
	SendOrderNotification(ctx context.Context, n notify.OrderNotification) (string, error)
}

type EventProducer interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte) error
}

// Submission is a validated-at-the-handler checkout request. Promo is the
// already-resolved promo code, nil when none was entered.
type Submission struct {
	UserID        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Address       Address
	Promo         *promo.Resolved
}

// NotificationOutcome tells the caller whether the confirmation email went
// out. A failed notification is a warning, never an order failure.
type NotificationOutcome struct {
	Sent    bool   `json:"sent"`
	ID      string `json:"id,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// Result is the two-phase outcome of a submission: the committed order plus
// the notification outcome, so callers can distinguish "order failed" from
// "order ok, email degraded".
type Result struct {
	Order        Order               `json:"order"`
	Summary      checkout.Summary    `json:"summary"`
	Notification NotificationOutcome `json:"notification"`
}

// Pipeline runs the order submission flow: validate, persist header, persist
// items (compensating on failure), clear cart, then best-effort notification
// and event publication.
type Pipeline struct {
	writer   Writer
	carts    CartStore
	notifier Notifier
	producer EventProducer // optional
}

func NewPipeline(writer Writer, carts CartStore, notifier Notifier, producer EventProducer) (*Pipeline, error) {
	if writer == nil || carts == nil || notifier == nil {
		return nil, fmt.Errorf("writer, cart store and notifier are required")
	}
	return &Pipeline{writer: writer, carts: carts, notifier: notifier, producer: producer}, nil
}

func (p *Pipeline) Submit(ctx context.Context, sub Submission) (*Result, error) {
	phone, err := NormalizePhone(sub.CustomerPhone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPhone, sub.CustomerPhone)
	}

	c, err := p.carts.Get(ctx, sub.UserID)
	if err != nil {
		return nil, err
	}
	if len(c.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	summary := checkout.Summarize(c, sub.Promo, checkout.FinalRule)

	order := Order{
		ID:            uuid.NewString(),
		UserID:        sub.UserID,
		CustomerName:  sub.CustomerName,
		CustomerEmail: sub.CustomerEmail,
		CustomerPhone: phone,
		Address:       sub.Address,
		Total:         summary.Total,
		Status:        StatusPending,
	}
	items := buildItems(c)

	if err := p.writer.InsertOrder(ctx, &order); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	if err := p.writer.InsertItems(ctx, order.ID, items); err != nil {
		// Compensate: an orphaned pending header with no items would need
		// manual reconciliation otherwise.
		if delErr := p.writer.DeleteOrder(ctx, order.ID); delErr != nil {
			slog.Error("compensating order delete failed, orphaned header remains",
				slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, delErr.Error()))
		}
		return nil, fmt.Errorf("failed to persist order items: %w", err)
	}
	order.Items = items

	// The order is committed from here on. Nothing below may fail the flow.
	if err := p.carts.Clear(ctx, sub.UserID); err != nil {
		slog.Error("failed to clear cart after order placement",
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
	}

	result := &Result{Order: order, Summary: summary}
	result.Notification = p.sendNotification(ctx, order)
	p.publishEvent(ctx, order)
	return result, nil
}

func (p *Pipeline) sendNotification(ctx context.Context, order Order) NotificationOutcome {
	n := notify.OrderNotification{
		OrderID:       order.ID,
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
		Total:         order.Total,
	}
	for _, it := range order.Items {
		item := notify.NotificationItem{
			ProductName: it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
		if it.VariationName != nil {
			item.VariationName = *it.VariationName
		}
		n.Items = append(n.Items, item)
	}

	id, err := p.notifier.SendOrderNotification(ctx, n)
	if err != nil {
		slog.Warn("order confirmation email not sent",
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		return NotificationOutcome{
			Sent:    false,
			Warning: "order placed, but the confirmation email could not be sent; contact support if it does not arrive",
		}
	}
	return NotificationOutcome{Sent: true, ID: id}
}

func (p *Pipeline) publishEvent(ctx context.Context, order Order) {
	if p.producer == nil {
		return
	}
	event := kafka.OrderPlacedEvent{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		UserID:      order.UserID,
		Total:       order.Total.StringFixed(2),
		ItemCount:   len(order.Items),
		CreatedAt:   order.CreatedAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal order placed event",
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		return
	}
	if err := p.producer.ProduceMessage(ctx, kafka.TopicOrderPlaced, []byte(order.ID), data); err != nil {
		slog.Error("failed to produce order placed event",
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
	}
}

func buildItems(c *cart.Cart) []Item {
	items := make([]Item, 0, len(c.Lines))
	for _, l := range c.Lines {
		quote := checkout.LineQuote(l)
		it := Item{
			ProductID: l.Product.ID,
			Name:      displayName(l.Product.Name.SR, l.Product.Name.EN),
			Quantity:  l.Quantity,
			UnitPrice: quote.Effective,
			ImageURL:  l.Variation.ImageURL,
		}
		if it.ImageURL == "" {
			it.ImageURL = l.Product.ImageURL
		}
		if !cart.IsBaseVariation(l.Variation.ID) {
			id := l.Variation.ID
			it.VariationID = &id
			name := displayName(l.Variation.Name.SR, l.Variation.Name.EN)
			it.VariationName = &name
		}
		items = append(items, it)
	}
	return items
}

func displayName(sr, en string) string {
	if sr != "" {
		return sr
	}
	return en
}
