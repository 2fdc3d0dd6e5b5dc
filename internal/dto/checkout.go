package dto

import "time"

// CheckoutResponse returns the hosted-checkout session for an enrollment.
type CheckoutResponse struct {
	EnrollmentID  string    `json:"enrollment_id"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	PaymentID     string    `json:"payment_id"`
	OrderID       string    `json:"order_id"`
	Amount        int64     `json:"amount"`
	SessionToken  string    `json:"session_token"`
	RedirectURL   string    `json:"redirect_url"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// WebhookResult acknowledges a processed gateway callback.
type WebhookResult struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}
