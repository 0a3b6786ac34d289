package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"prodavnica-api/internal/cart"
	"prodavnica-api/internal/catalog"
	"prodavnica-api/internal/notify"
	"prodavnica-api/internal/promo"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	failItems    bool
	failHeader   bool
	inserted     *Order
	itemsWritten []Item
	deleted      []string
}

func (f *fakeWriter) InsertOrder(_ context.Context, o *Order) error {
	if f.failHeader {
		return errors.New("header write refused")
	}
	o.Number = 1001
	o.CreatedAt = time.Now().UTC()
	cp := *o
	f.inserted = &cp
	return nil
}

func (f *fakeWriter) InsertItems(_ context.Context, orderID string, items []Item) error {
	if f.failItems {
		return errors.New("items write refused")
	}
	f.itemsWritten = items
	return nil
}

func (f *fakeWriter) DeleteOrder(_ context.Context, orderID string) error {
	f.deleted = append(f.deleted, orderID)
	return nil
}

type fakeNotifier struct {
	fail bool
	sent []notify.OrderNotification
}

func (f *fakeNotifier) SendOrderNotification(_ context.Context, n notify.OrderNotification) (string, error) {
	if f.fail {
		return "", notify.ErrDelivery
	}
	f.sent = append(f.sent, n)
	return "msg-1", nil
}

type fakeProducer struct {
	topics []string
}

func (f *fakeProducer) ProduceMessage(_ context.Context, topic string, _, _ []byte) error {
	f.topics = append(f.topics, topic)
	return nil
}

func seededCart(t *testing.T, price string, qty int) *cart.Store {
	t.Helper()
	store, err := cart.NewStore(cart.NewMemoryPersister())
	require.NoError(t, err)

	p := cart.ProductSnapshot{ID: "p1", Name: catalog.LocalizedText{SR: "Mleko", EN: "Milk"}}
	v := cart.VariationSnapshot{
		ID:    "v1",
		Name:  catalog.LocalizedText{SR: "1l", EN: "1l"},
		Price: decimal.RequireFromString(price),
	}
	ctx := context.Background()
	_, err = store.AddItem(ctx, "user-1", p, v)
	require.NoError(t, err)
	if qty > 1 {
		_, err = store.UpdateQuantity(ctx, "user-1", "v1", qty)
		require.NoError(t, err)
	}
	return store
}

func submission() Submission {
	return Submission{
		UserID:        "user-1",
		CustomerName:  "Petar Petrovic",
		CustomerEmail: "petar@example.com",
		CustomerPhone: "0601234567",
		Address:       Address{Street: "Glavna 1", City: "Beograd", Zip: "11000", Country: "Srbija"},
	}
}

func TestSubmit_Success(t *testing.T) {
	writer := &fakeWriter{}
	notifier := &fakeNotifier{}
	producer := &fakeProducer{}
	carts := seededCart(t, "100", 2)

	p, err := NewPipeline(writer, carts, notifier, producer)
	require.NoError(t, err)

	result, err := p.Submit(context.Background(), submission())
	require.NoError(t, err)

	// 200 subtotal + 40 VAT + 800 delivery = 1040.00
	assert.Equal(t, "1040.00", result.Order.Total.StringFixed(2))
	assert.Equal(t, StatusPending, result.Order.Status)
	assert.Equal(t, int64(1001), result.Order.Number)
	assert.Equal(t, "+381601234567", result.Order.CustomerPhone)
	require.NotNil(t, writer.inserted)
	assert.Equal(t, "1040.00", writer.inserted.Total.StringFixed(2))
	require.Len(t, writer.itemsWritten, 1)
	assert.Equal(t, 2, writer.itemsWritten[0].Quantity)

	// Cart is cleared once items are committed.
	c, err := carts.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, c.Lines)

	assert.True(t, result.Notification.Sent)
	assert.Equal(t, "msg-1", result.Notification.ID)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, result.Order.ID, notifier.sent[0].OrderID)
	assert.Len(t, producer.topics, 1)
}

func TestSubmit_InvalidPhoneHaltsBeforeWrites(t *testing.T) {
	writer := &fakeWriter{}
	carts := seededCart(t, "100", 1)
	p, err := NewPipeline(writer, carts, &fakeNotifier{}, nil)
	require.NoError(t, err)

	sub := submission()
	sub.CustomerPhone = "123"
	_, err = p.Submit(context.Background(), sub)

	assert.ErrorIs(t, err, ErrInvalidPhone)
	assert.Nil(t, writer.inserted, "no write may happen on validation failure")

	c, _ := carts.Get(context.Background(), "user-1")
	assert.Len(t, c.Lines, 1)
}

func TestSubmit_EmptyCart(t *testing.T) {
	store, err := cart.NewStore(cart.NewMemoryPersister())
	require.NoError(t, err)
	p, err := NewPipeline(&fakeWriter{}, store, &fakeNotifier{}, nil)
	require.NoError(t, err)

	_, err = p.Submit(context.Background(), submission())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestSubmit_HeaderFailureHaltsFlow(t *testing.T) {
	writer := &fakeWriter{failHeader: true}
	carts := seededCart(t, "100", 1)
	notifier := &fakeNotifier{}
	p, err := NewPipeline(writer, carts, notifier, nil)
	require.NoError(t, err)

	_, err = p.Submit(context.Background(), submission())
	require.Error(t, err)

	c, _ := carts.Get(context.Background(), "user-1")
	assert.Len(t, c.Lines, 1, "cart must survive a failed submission")
	assert.Empty(t, notifier.sent)
}

func TestSubmit_ItemFailureCompensatesAndKeepsCart(t *testing.T) {
	writer := &fakeWriter{failItems: true}
	carts := seededCart(t, "100", 2)
	notifier := &fakeNotifier{}
	p, err := NewPipeline(writer, carts, notifier, nil)
	require.NoError(t, err)

	_, err = p.Submit(context.Background(), submission())
	require.Error(t, err)

	// The orphaned header is compensated away.
	require.NotNil(t, writer.inserted)
	assert.Equal(t, []string{writer.inserted.ID}, writer.deleted)

	c, _ := carts.Get(context.Background(), "user-1")
	assert.Len(t, c.Lines, 1, "cart is only cleared after the item write succeeds")
	assert.Empty(t, notifier.sent)
}

func TestSubmit_NotificationFailureIsAWarning(t *testing.T) {
	writer := &fakeWriter{}
	carts := seededCart(t, "100", 1)
	notifier := &fakeNotifier{fail: true}
	p, err := NewPipeline(writer, carts, notifier, nil)
	require.NoError(t, err)

	result, err := p.Submit(context.Background(), submission())
	require.NoError(t, err, "a failed email must not fail the committed order")

	assert.False(t, result.Notification.Sent)
	assert.NotEmpty(t, result.Notification.Warning)
	require.NotNil(t, writer.inserted)

	c, _ := carts.Get(context.Background(), "user-1")
	assert.Empty(t, c.Lines, "cart clearing does not depend on the notification")
}

func TestSubmit_PromoAppliedToTotal(t *testing.T) {
	writer := &fakeWriter{}
	carts := seededCart(t, "500", 2)
	p, err := NewPipeline(writer, carts, &fakeNotifier{}, nil)
	require.NoError(t, err)

	sub := submission()
	sub.Promo = &promo.Resolved{Code: "SALE10", DiscountPercent: 10}
	result, err := p.Submit(context.Background(), sub)
	require.NoError(t, err)

	// 1000 - 100 promo = 900, VAT 180, fee 800 -> 1880.00
	assert.Equal(t, "1880.00", result.Order.Total.StringFixed(2))
	assert.Equal(t, "SALE10", result.Summary.PromoCode)
}

func TestSubmit_BaseLineSnapshotsWithoutVariation(t *testing.T) {
	store, err := cart.NewStore(cart.NewMemoryPersister())
	require.NoError(t, err)
	p := cart.ProductSnapshot{ID: "p1", Name: catalog.LocalizedText{SR: "Hleb", EN: "Bread"}, Discount: 10}
	v := cart.VariationSnapshot{
		ID:    cart.BaseVariationID("p1"),
		Name:  catalog.LocalizedText{SR: "Hleb", EN: "Bread"},
		Price: decimal.RequireFromString("100"),
	}
	_, err = store.AddItem(context.Background(), "user-1", p, v)
	require.NoError(t, err)

	writer := &fakeWriter{}
	pipe, err := NewPipeline(writer, store, &fakeNotifier{}, nil)
	require.NoError(t, err)

	_, err = pipe.Submit(context.Background(), submission())
	require.NoError(t, err)

	require.Len(t, writer.itemsWritten, 1)
	it := writer.itemsWritten[0]
	assert.Nil(t, it.VariationID, "base lines carry no real variation id")
	assert.Nil(t, it.VariationName)
	assert.Equal(t, "Hleb", it.Name)
	// Product discount applies to the base line: 100 -> 90.
	assert.Equal(t, "90.00", it.UnitPrice.StringFixed(2))
}
