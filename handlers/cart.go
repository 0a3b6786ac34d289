package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"prodavnica-api/internal/cart"
	"prodavnica-api/internal/catalog"
	"prodavnica-api/internal/checkout"
	"prodavnica-api/internal/promo"
	"prodavnica-api/pkg/ctxmanage"
	"prodavnica-api/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// maxLineQuantity caps what a single request may set; the store itself does
// not enforce an upper bound.
const maxLineQuantity = 99999

type addToCartRequest struct {
	// Exactly one of the two drives the line: a real variation id, or a
	// product id for a base-product line.
	VariationID string `json:"variation_id"`
	ProductID   string `json:"product_id"`
}

func (h *Handler) GetCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	crt, err := h.carts.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error loading cart", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}
	c.JSON(http.StatusOK, cartResponse(crt))
}

func (h *Handler) AddToCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.VariationID == "" && req.ProductID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "variation_id or product_id is required"})
		return
	}

	productSnap, variationSnap, err := h.buildSnapshots(c, req)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		if errors.Is(err, cart.ErrNotOrderable) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Item is not available for order"})
			return
		}
		slog.Error("error resolving cart item", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to cart"})
		return
	}

	crt, err := h.carts.AddItem(c.Request.Context(), claims.Subject, productSnap, variationSnap)
	if err != nil {
		if errors.Is(err, cart.ErrNotOrderable) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Item is not available for order"})
			return
		}
		slog.Error("error adding item to cart", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to cart"})
		return
	}
	c.JSON(http.StatusOK, cartResponse(crt))
}

func (h *Handler) buildSnapshots(c *gin.Context, req addToCartRequest) (cart.ProductSnapshot, cart.VariationSnapshot, error) {
	ctx := c.Request.Context()

	if req.VariationID != "" {
		product, variation, err := h.reader.GetVariation(ctx, req.VariationID)
		if err != nil {
			return cart.ProductSnapshot{}, cart.VariationSnapshot{}, err
		}
		if !variation.Orderable() {
			return cart.ProductSnapshot{}, cart.VariationSnapshot{}, cart.ErrNotOrderable
		}
		vs := cart.VariationSnapshot{
			ID:       variation.ID,
			Name:     variation.Name,
			Price:    variation.Price,
			Unit:     variation.Unit,
			Discount: variation.Discount,
		}
		if variation.ImageURL != nil {
			vs.ImageURL = *variation.ImageURL
		}
		return productSnapshot(product), vs, nil
	}

	product, err := h.reader.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return cart.ProductSnapshot{}, cart.VariationSnapshot{}, err
	}
	if product.Price == nil || !product.Price.IsPositive() {
		return cart.ProductSnapshot{}, cart.VariationSnapshot{}, cart.ErrNotOrderable
	}
	// Base-product line: synthetic variation id, priced at the product price.
	vs := cart.VariationSnapshot{
		ID:       cart.BaseVariationID(product.ID),
		Name:     product.Name,
		Price:    *product.Price,
		Unit:     product.Unit,
		ImageURL: product.ImageURL,
	}
	return productSnapshot(product), vs, nil
}

func productSnapshot(p catalog.Product) cart.ProductSnapshot {
	return cart.ProductSnapshot{
		ID:       p.ID,
		Name:     p.Name,
		ImageURL: p.ImageURL,
		Discount: p.Discount,
	}
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *Handler) UpdateCartQuantity(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "quantity must be a number"})
		return
	}
	qty := *req.Quantity
	if qty > maxLineQuantity {
		qty = maxLineQuantity
	}

	crt, err := h.carts.UpdateQuantity(c.Request.Context(), claims.Subject, c.Param("variationID"), qty)
	if err != nil {
		slog.Error("error updating cart quantity", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}
	c.JSON(http.StatusOK, cartResponse(crt))
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	crt, err := h.carts.RemoveItem(c.Request.Context(), claims.Subject, c.Param("variationID"))
	if err != nil {
		slog.Error("error removing cart item", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}
	c.JSON(http.StatusOK, cartResponse(crt))
}

func (h *Handler) ClearCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.carts.Clear(c.Request.Context(), claims.Subject); err != nil {
		slog.Error("error clearing cart", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// CartSummary prices the cart with the estimate delivery rule, optionally
// applying a promo code. This is the cart-page preview; the checkout pipeline
// computes the authoritative total under the final rule.
func (h *Handler) CartSummary(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	crt, err := h.carts.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error loading cart", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}

	var resolved *promo.Resolved
	if code := c.Query("promo"); code != "" {
		r, err := h.resolver.Resolve(c.Request.Context(), code)
		if err != nil {
			if errors.Is(err, promo.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "invalid promo code"})
				return
			}
			slog.Error("error resolving promo code", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve promo code"})
			return
		}
		resolved = &r
	}

	summary := checkout.Summarize(crt, resolved, checkout.EstimateRule)
	resp := cartResponse(crt)
	resp["summary"] = summary
	c.JSON(http.StatusOK, resp)
}

func cartResponse(crt *cart.Cart) gin.H {
	lines := make([]quotedLine, 0, len(crt.Lines))
	for _, l := range crt.Lines {
		lines = append(lines, quotedLine{Line: l, Quote: checkout.LineQuote(l)})
	}
	return gin.H{
		"lines":      lines,
		"subtotal":   crt.Subtotal(),
		"item_count": crt.ItemCount(),
	}
}
