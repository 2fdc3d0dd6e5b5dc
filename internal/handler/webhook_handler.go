package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bimbel-api/internal/dto"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
	"github.com/noah-isme/bimbel-api/pkg/gateway"
	"github.com/noah-isme/bimbel-api/pkg/response"
)

type paymentWebhookService interface {
	Process(ctx context.Context, payload gateway.WebhookPayload) (*dto.WebhookResult, error)
}

// WebhookHandler receives payment gateway callbacks.
type WebhookHandler struct {
	service paymentWebhookService
}

// NewWebhookHandler builds a new handler.
func NewWebhookHandler(service paymentWebhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// HandlePaymentWebhook godoc
// @Summary Process payment gateway notification
// @Description Verify and apply a signed payment status callback
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body gateway.WebhookPayload true "Gateway notification"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /payments/webhook [post]
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	var payload gateway.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid webhook body"))
		return
	}

	result, err := h.service.Process(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
