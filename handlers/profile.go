package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"prodavnica-api/internal/profiles"
	"prodavnica-api/pkg/ctxmanage"
	"prodavnica-api/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetProfile(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	p, err := h.profiles.GetProfile(c.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, profiles.ErrNotFound) {
			// Profiles are created lazily; an empty profile is not an error.
			c.JSON(http.StatusOK, gin.H{"profile": nil})
			return
		}
		slog.Error("error fetching profile", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

func (h *Handler) SaveProfile(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var sp profiles.SaveProfile
	if err := c.ShouldBindJSON(&sp); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(sp); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.profiles.UpsertProfile(c.Request.Context(), claims.Subject, sp)
	if err != nil {
		if errors.Is(err, profiles.ErrInvalidPIB) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("error saving profile", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to save profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}
