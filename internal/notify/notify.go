// Package notify is the client for the transactional email provider. Order
// notifications are best-effort: delivery failure must never fail an already
// committed order.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"prodavnica-api/internal/consul"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/shopspring/decimal"
)

// ErrDelivery marks a provider-side delivery failure (non-2xx or ok=false).
var ErrDelivery = errors.New("notification delivery failed")

const notificationsService = "notifications"

type NotificationItem struct {
	ProductName   string          `json:"productName"`
	VariationName string          `json:"variationName,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
}

type OrderNotification struct {
	OrderID       string             `json:"orderId"`
	CustomerEmail string             `json:"customerEmail"`
	CustomerPhone string             `json:"customerPhone"`
	Total         decimal.Decimal    `json:"total"`
	Items         []NotificationItem `json:"items"`
}

type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type providerResponse struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// Client posts JSON payloads to the provider. The base URL may be static
// (NOTIFY_BASE_URL) or discovered via the consul "notifications" service.
type Client struct {
	http    *http.Client
	baseURL string
	consul  *consulapi.Client
}

func NewClient(baseURL string, consulClient *consulapi.Client) (*Client, error) {
	if baseURL == "" && consulClient == nil {
		return nil, fmt.Errorf("no notification endpoint: need a base URL or a consul client")
	}
	return &Client{
		// The provider is an external hop; cap it so a stalled email call
		// cannot hang a checkout response.
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		consul:  consulClient,
	}, nil
}

func (c *Client) endpoint(path string) (string, error) {
	if c.baseURL != "" {
		return c.baseURL + path, nil
	}
	address, port, err := consul.GetServiceAddress(c.consul, notificationsService)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%d%s", address, port, path), nil
}

// SendOrderNotification posts the order summary and returns the provider
// message id. Any failure wraps ErrDelivery.
func (c *Client) SendOrderNotification(ctx context.Context, n OrderNotification) (string, error) {
	resp, err := c.post(ctx, "/order-notification", n)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// SendContactMessage relays a contact-form submission to the provider.
func (c *Client) SendContactMessage(ctx context.Context, m ContactMessage) error {
	_, err := c.post(ctx, "/contact", m)
	return err
}

func (c *Client) post(ctx context.Context, path string, payload any) (providerResponse, error) {
	url, err := c.endpoint(path)
	if err != nil {
		return providerResponse{}, fmt.Errorf("%w: %s", ErrDelivery, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return providerResponse{}, fmt.Errorf("marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return providerResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return providerResponse{}, fmt.Errorf("%w: %s", ErrDelivery, err)
	}
	defer resp.Body.Close()

	var pr providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return providerResponse{}, fmt.Errorf("%w: decoding provider response: %s", ErrDelivery, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !pr.OK {
		reason := pr.Error
		if reason == "" {
			reason = resp.Status
		}
		return providerResponse{}, fmt.Errorf("%w: %s", ErrDelivery, reason)
	}
	return pr, nil
}
