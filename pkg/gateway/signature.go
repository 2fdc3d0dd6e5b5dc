package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// WebhookPayload is the callback body the gateway POSTs after a payment
// attempt. CompletedAt is the gateway-side completion timestamp in RFC3339.
type WebhookPayload struct {
	Project       string `json:"project"`
	OrderID       string `json:"order_id" validate:"required"`
	Amount        int64  `json:"amount" validate:"required"`
	Status        string `json:"status" validate:"required"`
	PaymentMethod string `json:"payment_method"`
	CompletedAt   string `json:"completed_at"`
	Signature     string `json:"signature"`
}

// Sign computes the expected HMAC-SHA256 signature for a webhook payload
// using the merchant server key.
func Sign(serverKey, orderID, status string, amount int64) string {
	mac := hmac.New(sha256.New, []byte(serverKey))
	fmt.Fprintf(mac, "%s|%s|%d", orderID, status, amount)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the payload signature in constant time.
func VerifySignature(serverKey string, p WebhookPayload) bool {
	expected := Sign(serverKey, p.OrderID, p.Status, p.Amount)
	return hmac.Equal([]byte(expected), []byte(p.Signature))
}
