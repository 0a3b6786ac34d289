package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"prodavnica-api/internal/promo"
	"prodavnica-api/pkg/ctxmanage"
	"prodavnica-api/pkg/logkey"

	"github.com/gin-gonic/gin"
)

type resolvePromoRequest struct {
	Code string `json:"code" validate:"required"`
}

// ResolvePromo checks a shopper-entered code against the active promo codes.
// An unknown code is answered with an explicit 404 rather than ignored.
func (h *Handler) ResolvePromo(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req resolvePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	resolved, err := h.resolver.Resolve(c.Request.Context(), req.Code)
	if err != nil {
		if errors.Is(err, promo.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "invalid promo code"})
			return
		}
		slog.Error("error resolving promo code", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve promo code"})
		return
	}
	c.JSON(http.StatusOK, resolved)
}

func (h *Handler) ListPromoCodes(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	codes, err := h.promos.ListPromoCodes(c.Request.Context())
	if err != nil {
		slog.Error("error listing promo codes", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch promo codes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"promo_codes": codes})
}

func (h *Handler) CreatePromoCode(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var np promo.NewPromoCode
	if err := c.ShouldBindJSON(&np); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(np); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pc, err := h.promos.InsertPromoCode(c.Request.Context(), np)
	if err != nil {
		if errors.Is(err, promo.ErrDiscountRange) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("error creating promo code", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Promo code creation failed"})
		return
	}
	c.JSON(http.StatusOK, pc)
}

func (h *Handler) UpdatePromoCode(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var np promo.NewPromoCode
	if err := c.ShouldBindJSON(&np); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(np); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pc, err := h.promos.UpdatePromoCode(c.Request.Context(), c.Param("id"), np)
	if err != nil {
		switch {
		case errors.Is(err, promo.ErrDiscountRange):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, promo.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Promo code not found"})
		default:
			slog.Error("error updating promo code", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Promo code update failed"})
		}
		return
	}
	c.JSON(http.StatusOK, pc)
}

func (h *Handler) DeletePromoCode(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	if err := h.promos.DeletePromoCode(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, promo.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Promo code not found"})
			return
		}
		slog.Error("error deleting promo code", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Promo code deletion failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Promo code deleted"})
}
