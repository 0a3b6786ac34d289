package handlers

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"prodavnica-api/internal/auth"
	"prodavnica-api/internal/cart"
	"prodavnica-api/internal/catalog"
	"prodavnica-api/internal/notify"
	"prodavnica-api/internal/orders"
	"prodavnica-api/internal/promo"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products   map[string]catalog.Product
	variations map[string]catalog.Variation
}

func (f *fakeCatalog) GetProductByID(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) GetVariation(_ context.Context, id string) (catalog.Product, catalog.Variation, error) {
	v, ok := f.variations[id]
	if !ok {
		return catalog.Product{}, catalog.Variation{}, catalog.ErrNotFound
	}
	return f.products[v.ProductID], v, nil
}

type fakeResolver struct {
	codes []promo.PromoCode
}

func (f *fakeResolver) Resolve(_ context.Context, input string) (promo.Resolved, error) {
	return promo.ResolveIn(f.codes, input)
}

type fakeContact struct {
	fail bool
	sent []notify.ContactMessage
}

func (f *fakeContact) SendContactMessage(_ context.Context, m notify.ContactMessage) error {
	if f.fail {
		return notify.ErrDelivery
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeWriter struct {
	failItems bool
	inserted  *orders.Order
	deleted   []string
}

func (f *fakeWriter) InsertOrder(_ context.Context, o *orders.Order) error {
	o.Number = 1001
	o.CreatedAt = time.Now().UTC()
	cp := *o
	f.inserted = &cp
	return nil
}

func (f *fakeWriter) InsertItems(_ context.Context, _ string, _ []orders.Item) error {
	if f.failItems {
		return errors.New("items write refused")
	}
	return nil
}

func (f *fakeWriter) DeleteOrder(_ context.Context, orderID string) error {
	f.deleted = append(f.deleted, orderID)
	return nil
}

type fakeNotifier struct{}

func (fakeNotifier) SendOrderNotification(_ context.Context, _ notify.OrderNotification) (string, error) {
	return "msg-1", nil
}

type fakeOrders struct {
	statuses map[string]orders.Status
}

func (f *fakeOrders) ListOrdersByUser(_ context.Context, _ string) ([]orders.Order, error) {
	return nil, nil
}

func (f *fakeOrders) GetOrder(_ context.Context, _, _ string) (orders.Order, error) {
	return orders.Order{}, orders.ErrNotFound
}

func (f *fakeOrders) UpdateStatus(_ context.Context, orderID string, status orders.Status) error {
	if _, ok := f.statuses[orderID]; !ok {
		return orders.ErrNotFound
	}
	f.statuses[orderID] = status
	return nil
}

type fixture struct {
	engine     *gin.Engine
	carts      *cart.Store
	writer     *fakeWriter
	contact    *fakeContact
	orders     *fakeOrders
	token      string
	adminToken string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("GIN_MODE", gin.ReleaseMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keys := auth.NewKeysFromRSA(key)

	token, err := keys.GenerateToken(auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{auth.RoleUser},
	})
	require.NoError(t, err)

	adminToken, err := keys.GenerateToken(auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{auth.RoleAdmin},
	})
	require.NoError(t, err)

	price := decimal.RequireFromString("350")
	reader := &fakeCatalog{
		products: map[string]catalog.Product{
			"p1": {
				ID:       "p1",
				Name:     catalog.LocalizedText{SR: "Mleko", EN: "Milk"},
				Price:    &price,
				Unit:     "kom",
				Discount: 0,
			},
		},
		variations: map[string]catalog.Variation{
			"v1": {
				ID:        "v1",
				ProductID: "p1",
				Name:      catalog.LocalizedText{SR: "1l", EN: "1l"},
				Price:     decimal.RequireFromString("100"),
				InStock:   true,
				Active:    true,
			},
		},
	}

	carts, err := cart.NewStore(cart.NewMemoryPersister())
	require.NoError(t, err)

	writer := &fakeWriter{}
	pipeline, err := orders.NewPipeline(writer, carts, fakeNotifier{}, nil)
	require.NoError(t, err)

	contact := &fakeContact{}
	ordersStore := &fakeOrders{statuses: map[string]orders.Status{}}
	h := NewHandler(Deps{
		Reader: reader,
		Carts:  carts,
		Resolver: &fakeResolver{codes: []promo.PromoCode{
			{ID: "1", Code: "SALE10", DiscountPercent: 10, Active: true},
		}},
		Orders:   ordersStore,
		Pipeline: pipeline,
		Contact:  contact,
	})

	return &fixture{
		engine:     API("/v1", keys, h),
		carts:      carts,
		writer:     writer,
		contact:    contact,
		orders:     ordersStore,
		token:      token,
		adminToken: adminToken,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	token := ""
	if authed {
		token = f.token
	}
	return f.doWith(t, method, path, body, token)
}

func (f *fixture) doWith(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCartRoutes_RequireAuth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/v1/cart", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAddToCart_DedupesByVariation(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 2; i++ {
		w := f.do(t, http.MethodPost, "/v1/cart/items", `{"variation_id":"v1"}`, true)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := f.do(t, http.MethodGet, "/v1/cart", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, float64(2), resp["item_count"])
	assert.Len(t, resp["lines"], 1)
}

func TestAddToCart_BaseProductLine(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/cart/items", `{"product_id":"p1"}`, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	c, err := f.carts.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, cart.BaseVariationID("p1"), c.Lines[0].Variation.ID)
}

func TestAddToCart_UnknownVariation(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/v1/cart/items", `{"variation_id":"nope"}`, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/v1/cart/items", `{"variation_id":"v1"}`, true)

	w := f.do(t, http.MethodPatch, "/v1/cart/items/v1", `{"quantity":0}`, true)
	require.Equal(t, http.StatusOK, w.Code)

	c, err := f.carts.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
}

func TestUpdateQuantity_NonNumericRejected(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/v1/cart/items", `{"variation_id":"v1"}`, true)

	w := f.do(t, http.MethodPatch, "/v1/cart/items/v1", `{"quantity":"many"}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, err := f.carts.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 1, c.Lines[0].Quantity, "invalid input must not change the cart")
}

func TestResolvePromo(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/promo/resolve", `{"code":"sale10"}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "SALE10", resp["code"])
	assert.Equal(t, float64(10), resp["discount_percent"])

	w = f.do(t, http.MethodPost, "/v1/promo/resolve", `{"code":"TYPO"}`, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

const checkoutBody = `{
	"customer_name": "Petar Petrovic",
	"customer_email": "petar@example.com",
	"customer_phone": "0601234567",
	"street": "Glavna 1",
	"city": "Beograd",
	"zip": "11000",
	"country": "Srbija"
}`

func TestCheckout_Success(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/v1/cart/items", `{"variation_id":"v1"}`, true)
	f.do(t, http.MethodPatch, "/v1/cart/items/v1", `{"quantity":2}`, true)

	w := f.do(t, http.MethodPost, "/v1/checkout", checkoutBody, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode(t, w)
	order := resp["order"].(map[string]any)
	assert.Equal(t, "1040", order["total"])
	notification := resp["notification"].(map[string]any)
	assert.Equal(t, true, notification["sent"])

	c, err := f.carts.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
}

func TestCheckout_InvalidPhone(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/v1/cart/items", `{"variation_id":"v1"}`, true)

	body := strings.Replace(checkoutBody, "0601234567", "123", 1)
	w := f.do(t, http.MethodPost, "/v1/checkout", body, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, f.writer.inserted)
}

func TestCheckout_ItemWriteFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.writer.failItems = true
	f.do(t, http.MethodPost, "/v1/cart/items", `{"variation_id":"v1"}`, true)

	w := f.do(t, http.MethodPost, "/v1/checkout", checkoutBody, true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	c, err := f.carts.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, c.Lines, 1)
	// Compensation removed the orphaned header.
	require.NotNil(t, f.writer.inserted)
	assert.Equal(t, []string{f.writer.inserted.ID}, f.writer.deleted)
}

func TestCheckout_InvalidPromoCode(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/v1/cart/items", `{"variation_id":"v1"}`, true)

	body := strings.Replace(checkoutBody, `"country": "Srbija"`, `"country": "Srbija", "promo_code": "TYPO"`, 1)
	w := f.do(t, http.MethodPost, "/v1/checkout", body, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, f.writer.inserted)
}

func TestCartSummary_WithPromo(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/v1/cart/items", `{"variation_id":"v1"}`, true)
	f.do(t, http.MethodPatch, "/v1/cart/items/v1", `{"quantity":10}`, true)

	w := f.do(t, http.MethodGet, "/v1/cart/summary?promo=sale10", "", true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode(t, w)
	summary := resp["summary"].(map[string]any)
	// 1000 - 100 promo = 900, VAT 180, estimate rule: 1000 < 3000 -> fee 199.
	assert.Equal(t, "1000", summary["subtotal"])
	assert.Equal(t, "100", summary["promo_discount"])
	assert.Equal(t, "199", summary["delivery_fee"])
	assert.Equal(t, "1279", summary["total"])
}

func TestUpdateOrderStatus_AdminRoute(t *testing.T) {
	f := newFixture(t)
	f.orders.statuses["ord-1"] = orders.StatusPending

	w := f.doWith(t, http.MethodPatch, "/v1/admin/orders/ord-1/status", `{"status":"processing"}`, f.adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, orders.StatusProcessing, f.orders.statuses["ord-1"])

	w = f.doWith(t, http.MethodPatch, "/v1/admin/orders/ord-1/status", `{"status":"shipped"}`, f.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, orders.StatusProcessing, f.orders.statuses["ord-1"], "invalid input must not change the status")

	w = f.doWith(t, http.MethodPatch, "/v1/admin/orders/missing/status", `{"status":"completed"}`, f.adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateOrderStatus_UserForbidden(t *testing.T) {
	f := newFixture(t)
	w := f.doWith(t, http.MethodPatch, "/v1/admin/orders/ord-1/status", `{"status":"completed"}`, f.token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreatePromoCode_DiscountRangeRejected(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{
		`{"code":"BIG","discount_percent":95,"active":true}`,
		`{"code":"NEG","discount_percent":-1,"active":true}`,
	} {
		w := f.doWith(t, http.MethodPost, "/v1/admin/promo-codes", body, f.adminToken)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestWriteRequestBodyCap(t *testing.T) {
	f := newFixture(t)

	big := strings.Repeat("a", 70*1024)
	body := `{"name":"A","email":"a@b.c","phone":"0601234567","message":"` + big + `"}`
	w := f.do(t, http.MethodPost, "/v1/contact", body, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.contact.sent)
}

func TestContactForm(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/contact", `{"name":"A","email":"a@b.c","phone":"0601234567","message":"Zdravo"}`, false)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.contact.sent, 1)

	w = f.do(t, http.MethodPost, "/v1/contact", `{"name":"  ","email":"a@b.c","phone":"0601234567","message":"Zdravo"}`, false)
	assert.Equal(t, http.StatusBadRequest, w.Code, "whitespace-only fields are rejected")

	f.contact.fail = true
	w = f.do(t, http.MethodPost, "/v1/contact", `{"name":"A","email":"a@b.c","phone":"0601234567","message":"Zdravo"}`, false)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
