package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bimbel-api/internal/dto"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
	"github.com/noah-isme/bimbel-api/pkg/gateway"
)

type webhookServiceMock struct {
	resp        *dto.WebhookResult
	err         error
	called      bool
	lastPayload gateway.WebhookPayload
}

func (m *webhookServiceMock) Process(ctx context.Context, payload gateway.WebhookPayload) (*dto.WebhookResult, error) {
	m.called = true
	m.lastPayload = payload
	return m.resp, m.err
}

func TestWebhookHandlerProcess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &webhookServiceMock{
		resp: &dto.WebhookResult{OrderID: "BIM20260901-AAAAAA", Status: "PAID"},
	}
	handler := NewWebhookHandler(mockSvc)

	payload, _ := json.Marshal(gateway.WebhookPayload{
		OrderID:   "BIM20260901-AAAAAA",
		Amount:    500000,
		Status:    "settlement",
		Signature: "deadbeef",
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.HandlePaymentWebhook(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.called)
	assert.Equal(t, "BIM20260901-AAAAAA", mockSvc.lastPayload.OrderID)
	assert.Equal(t, int64(500000), mockSvc.lastPayload.Amount)
}

func TestWebhookHandlerInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &webhookServiceMock{}
	handler := NewWebhookHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewBufferString(`{"order_id":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.HandlePaymentWebhook(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.called)
}

func TestWebhookHandlerServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &webhookServiceMock{err: appErrors.ErrInvalidSignature}
	handler := NewWebhookHandler(mockSvc)

	payload, _ := json.Marshal(gateway.WebhookPayload{
		OrderID:   "BIM20260901-AAAAAA",
		Amount:    500000,
		Status:    "settlement",
		Signature: "bogus",
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.HandlePaymentWebhook(c)
	require.Equal(t, appErrors.ErrInvalidSignature.Status, w.Code)
}
