package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"prodavnica-api/internal/notify"
	"prodavnica-api/pkg/ctxmanage"
	"prodavnica-api/pkg/logkey"

	"github.com/gin-gonic/gin"
)

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// ContactForm relays a contact-form submission. All fields are required
// non-empty after trimming; a provider failure is a hard 500 here, unlike the
// best-effort order notification.
func (h *Handler) ContactForm(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	m := notify.ContactMessage{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Message: strings.TrimSpace(req.Message),
	}
	if m.Name == "" || m.Email == "" || m.Phone == "" || m.Message == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "all fields are required"})
		return
	}

	if err := h.contact.SendContactMessage(c.Request.Context(), m); err != nil {
		slog.Error("contact message delivery failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Message could not be delivered"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
