package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	payload := WebhookPayload{
		OrderID: "BIM20260115-A1B2C3",
		Amount:  750000,
		Status:  "completed",
	}
	payload.Signature = Sign("server-key", payload.OrderID, payload.Status, payload.Amount)

	assert.True(t, VerifySignature("server-key", payload))
	assert.False(t, VerifySignature("other-key", payload))

	payload.Amount = 1
	assert.False(t, VerifySignature("server-key", payload))
}
