package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
	"github.com/noah-isme/bimbel-api/pkg/response"
)

type meetingScheduler interface {
	Schedule(ctx context.Context, req dto.ScheduleMeetingRequest) (*models.Meeting, error)
	Get(ctx context.Context, id string) (*models.Meeting, error)
	Cancel(ctx context.Context, id string) error
}

// MeetingHandler serves meeting scheduling endpoints.
type MeetingHandler struct {
	service meetingScheduler
}

// NewMeetingHandler builds a new handler.
func NewMeetingHandler(service meetingScheduler) *MeetingHandler {
	return &MeetingHandler{service: service}
}

// Schedule godoc
// @Summary Schedule a section meeting
// @Description Book a meeting after tutor availability and conflict checks
// @Tags Meetings
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleMeetingRequest true "Meeting payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /meetings [post]
func (h *MeetingHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	meeting, err := h.service.Schedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, meeting)
}

// Get godoc
// @Summary Get meeting detail
// @Tags Meetings
// @Produce json
// @Param id path string true "Meeting ID"
// @Success 200 {object} response.Envelope
// @Router /meetings/{id} [get]
func (h *MeetingHandler) Get(c *gin.Context) {
	meeting, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meeting, nil)
}

// Cancel godoc
// @Summary Cancel a scheduled meeting
// @Tags Meetings
// @Param id path string true "Meeting ID"
// @Success 204
// @Router /meetings/{id} [delete]
func (h *MeetingHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
