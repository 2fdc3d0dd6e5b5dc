package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/internal/service"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
	"github.com/noah-isme/bimbel-api/pkg/response"
)

// InvoiceHandler serves invoice endpoints including PDF and CSV exports.
type InvoiceHandler struct {
	invoices *service.InvoiceService
}

// NewInvoiceHandler constructs the handler.
func NewInvoiceHandler(invoices *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

func invoiceFilterFromQuery(c *gin.Context) models.InvoiceFilter {
	page, size := pageParams(c)
	return models.InvoiceFilter{
		EnrollmentID: c.Query("enrollment_id"),
		Status:       models.InvoiceStatus(c.Query("status")),
		Page:         page,
		PageSize:     size,
		SortBy:       c.Query("sort_by"),
		SortOrder:    c.Query("sort_order"),
	}
}

// List godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param enrollment_id query string false "Enrollment ID filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	items, pagination, err := h.invoices.List(c.Request.Context(), invoiceFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get returns one invoice.
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// DownloadPDF godoc
// @Summary Download invoice PDF
// @Tags Invoices
// @Produce application/pdf
// @Param id path string true "Invoice ID"
// @Success 200 {file} binary
// @Router /invoices/{id}/pdf [get]
func (h *InvoiceHandler) DownloadPDF(c *gin.Context) {
	content, filename, err := h.invoices.RenderPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", content)
}

// UpdateDiscount adjusts an unpaid invoice's discount and recomputes its total.
func (h *InvoiceHandler) UpdateDiscount(c *gin.Context) {
	var req dto.UpdateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	invoice, err := h.invoices.UpdateDiscount(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Cancel voids an unpaid invoice.
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	if err := h.invoices.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportCSV streams invoices matching the filters as a CSV file.
func (h *InvoiceHandler) ExportCSV(c *gin.Context) {
	content, err := h.invoices.ExportCSV(c.Request.Context(), invoiceFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="invoices.csv"`)
	c.Data(http.StatusOK, "text/csv", content)
}
