package handlers

import (
	"context"
	"net/http"
	"os"

	"prodavnica-api/internal/auth"
	"prodavnica-api/internal/cart"
	"prodavnica-api/internal/catalog"
	"prodavnica-api/internal/notify"
	"prodavnica-api/internal/orders"
	"prodavnica-api/internal/pricing"
	"prodavnica-api/internal/profiles"
	"prodavnica-api/internal/promo"
	"prodavnica-api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// CatalogReader is the catalog slice the cart handlers need to snapshot
// products into cart lines.
type CatalogReader interface {
	GetProductByID(ctx context.Context, id string) (catalog.Product, error)
	GetVariation(ctx context.Context, variationID string) (catalog.Product, catalog.Variation, error)
}

// PromoResolver resolves shopper promo-code input against the active codes.
type PromoResolver interface {
	Resolve(ctx context.Context, input string) (promo.Resolved, error)
}

// ContactSender relays contact-form submissions to the email provider.
type ContactSender interface {
	SendContactMessage(ctx context.Context, m notify.ContactMessage) error
}

// OrderStore is the order-history and lifecycle slice the order handlers use.
type OrderStore interface {
	ListOrdersByUser(ctx context.Context, userID string) ([]orders.Order, error)
	GetOrder(ctx context.Context, orderID, userID string) (orders.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status orders.Status) error
}

type Handler struct {
	store    catalog.Conf
	reader   CatalogReader
	carts    *cart.Store
	promos   promo.Conf
	resolver PromoResolver
	orders   OrderStore
	pipeline *orders.Pipeline
	profiles profiles.Conf
	contact  ContactSender
	validate *validator.Validate
}

type Deps struct {
	Catalog  catalog.Conf
	Reader   CatalogReader
	Carts    *cart.Store
	Promos   promo.Conf
	Resolver PromoResolver
	Orders   OrderStore
	Pipeline *orders.Pipeline
	Profiles profiles.Conf
	Contact  ContactSender
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		store:    d.Catalog,
		reader:   d.Reader,
		carts:    d.Carts,
		promos:   d.Promos,
		resolver: d.Resolver,
		orders:   d.Orders,
		pipeline: d.Pipeline,
		profiles: d.Profiles,
		contact:  d.Contact,
		validate: validator.New(),
	}
}

func API(endpointPrefix string, keys *auth.Keys, h *Handler) *gin.Engine {
	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	m, err := middleware.NewMid(keys)
	if err != nil {
		panic(err)
	}

	r.Use(middleware.Logger(), middleware.BodySizeLimit(), gin.Recovery())
	r.GET("/ping", healthCheck)

	v1 := r.Group(endpointPrefix)
	{
		v1.GET("/catalog/categories", h.ListCategories)
		v1.GET("/catalog/products", h.ListProducts)
		v1.GET("/catalog/products/:id", h.GetProduct)
		v1.POST("/contact", h.ContactForm)
	}

	user := v1.Group("")
	user.Use(m.Authentication())
	{
		user.GET("/cart", m.Authorize(h.GetCart, auth.RoleUser))
		user.GET("/cart/summary", m.Authorize(h.CartSummary, auth.RoleUser))
		user.POST("/cart/items", m.Authorize(h.AddToCart, auth.RoleUser))
		user.PATCH("/cart/items/:variationID", m.Authorize(h.UpdateCartQuantity, auth.RoleUser))
		user.DELETE("/cart/items/:variationID", m.Authorize(h.RemoveFromCart, auth.RoleUser))
		user.DELETE("/cart", m.Authorize(h.ClearCart, auth.RoleUser))

		user.POST("/promo/resolve", m.Authorize(h.ResolvePromo, auth.RoleUser))
		user.POST("/checkout", m.Authorize(h.Checkout, auth.RoleUser))
		user.GET("/orders", m.Authorize(h.ListOrders, auth.RoleUser))
		user.GET("/orders/:id", m.Authorize(h.GetOrder, auth.RoleUser))

		user.GET("/profile", m.Authorize(h.GetProfile, auth.RoleUser))
		user.PUT("/profile", m.Authorize(h.SaveProfile, auth.RoleUser))
	}

	admin := v1.Group("/admin")
	admin.Use(m.Authentication())
	{
		admin.POST("/categories", m.Authorize(h.CreateCategory, auth.RoleAdmin))
		admin.PUT("/categories/:id", m.Authorize(h.UpdateCategory, auth.RoleAdmin))
		admin.DELETE("/categories/:id", m.Authorize(h.DeleteCategory, auth.RoleAdmin))

		admin.POST("/products", m.Authorize(h.CreateProduct, auth.RoleAdmin))
		admin.PUT("/products/:id", m.Authorize(h.UpdateProduct, auth.RoleAdmin))
		admin.DELETE("/products/:id", m.Authorize(h.DeleteProduct, auth.RoleAdmin))

		admin.POST("/products/:id/variations", m.Authorize(h.CreateVariation, auth.RoleAdmin))
		admin.PUT("/variations/:id", m.Authorize(h.UpdateVariation, auth.RoleAdmin))
		admin.DELETE("/variations/:id", m.Authorize(h.DeleteVariation, auth.RoleAdmin))

		admin.PATCH("/orders/:id/status", m.Authorize(h.UpdateOrderStatus, auth.RoleAdmin))

		admin.GET("/promo-codes", m.Authorize(h.ListPromoCodes, auth.RoleAdmin))
		admin.POST("/promo-codes", m.Authorize(h.CreatePromoCode, auth.RoleAdmin))
		admin.PUT("/promo-codes/:id", m.Authorize(h.UpdatePromoCode, auth.RoleAdmin))
		admin.DELETE("/promo-codes/:id", m.Authorize(h.DeletePromoCode, auth.RoleAdmin))
	}

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// claimsFromRequest pulls the authenticated claims set by the middleware.
func claimsFromRequest(c *gin.Context) (auth.Claims, bool) {
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	return claims, ok
}

// quoteLine is shared response shaping for cart views: the line plus its
// effective price for strikethrough display.
type quotedLine struct {
	Line  cart.Line     `json:"line"`
	Quote pricing.Quote `json:"quote"`
}
