package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/noah-isme/bimbel-api/pkg/config"
)

// CheckoutRequest asks the gateway for a hosted-checkout session.
type CheckoutRequest struct {
	OrderID       string    `json:"order_id"`
	GrossAmount   int64     `json:"gross_amount"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// CheckoutSession is the gateway's answer: a token plus the URL the student
// is redirected to for payment.
type CheckoutSession struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// Client talks to the external payment gateway over HTTP.
type Client struct {
	baseURL   string
	serverKey string
	projectID string
	http      *http.Client
}

// NewClient constructs a gateway client from configuration.
func NewClient(cfg config.GatewayConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		serverKey: cfg.ServerKey,
		projectID: cfg.ProjectID,
		http:      &http.Client{Timeout: timeout},
	}
}

// CreateCheckout requests a hosted-checkout session for the given order.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	payload := map[string]interface{}{
		"project":        c.projectID,
		"order_id":       req.OrderID,
		"gross_amount":   req.GrossAmount,
		"customer_name":  req.CustomerName,
		"customer_email": req.CustomerEmail,
		"expires_at":     req.ExpiresAt.UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode checkout payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.serverKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode checkout response: %w", err)
	}
	if session.Token == "" || session.RedirectURL == "" {
		return nil, fmt.Errorf("gateway returned incomplete session")
	}
	return &session, nil
}
