package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/internal/service"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
	"github.com/noah-isme/bimbel-api/pkg/response"
)

// SectionHandler serves section listing and availability endpoints.
type SectionHandler struct {
	sections *service.SectionService
}

// NewSectionHandler constructs the handler.
func NewSectionHandler(sections *service.SectionService) *SectionHandler {
	return &SectionHandler{sections: sections}
}

// List returns sections matching the query filters.
func (h *SectionHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.SectionFilter{
		ProgramID: c.Query("program_id"),
		TutorID:   c.Query("tutor_id"),
		Status:    models.SectionStatus(c.Query("status")),
		Page:      page,
		PageSize:  size,
	}

	items, pagination, err := h.sections.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get returns one section with its tutor and program details.
func (h *SectionHandler) Get(c *gin.Context) {
	detail, err := h.sections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Availability godoc
// @Summary Section seat availability
// @Description Remaining seats per section of a program, cached briefly
// @Tags Sections
// @Produce json
// @Param program_id query string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /sections/availability [get]
func (h *SectionHandler) Availability(c *gin.Context) {
	programID := c.Query("program_id")
	if programID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "program_id is required"))
		return
	}

	items, err := h.sections.Availability(c.Request.Context(), programID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
