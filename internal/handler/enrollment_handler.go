package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/internal/service"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
	"github.com/noah-isme/bimbel-api/pkg/response"
)

// EnrollmentHandler serves enrollment lifecycle and waiting-list endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	checkout    *service.CheckoutService
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, checkout *service.CheckoutService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, checkout: checkout}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param student_id query string false "Student ID filter"
// @Param section_id query string false "Section ID filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.EnrollmentFilter{
		StudentID: c.Query("student_id"),
		SectionID: c.Query("section_id"),
		Status:    models.EnrollmentStatus(c.Query("status")),
		Page:      page,
		PageSize:  size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	items, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get returns one enrollment with its student and section details.
func (h *EnrollmentHandler) Get(c *gin.Context) {
	detail, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Enroll a student into a section
// @Description Claim a seat and create a pending enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Activate transitions a paid enrollment into its active period.
func (h *EnrollmentHandler) Activate(c *gin.Context) {
	detail, err := h.enrollments.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Checkout godoc
// @Summary Open a payment session
// @Description Create invoice, payment and gateway session for a pending enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollments/{id}/checkout [post]
func (h *EnrollmentHandler) Checkout(c *gin.Context) {
	session, err := h.checkout.CreateSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// ListWaitlist returns a program's waiting list in arrival order.
func (h *EnrollmentHandler) ListWaitlist(c *gin.Context) {
	entries, err := h.enrollments.ListWaitlist(c.Request.Context(), c.Query("program_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// JoinWaitlist places a student on a program's waiting list.
func (h *EnrollmentHandler) JoinWaitlist(c *gin.Context) {
	var req dto.JoinWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	entry, err := h.enrollments.JoinWaitlist(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// ApproveWaitlist converts a waiting-list entry into a pending enrollment.
func (h *EnrollmentHandler) ApproveWaitlist(c *gin.Context) {
	var req dto.ApproveWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	enrollment, err := h.enrollments.ApproveWaitlist(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}
