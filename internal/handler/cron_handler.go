package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/service"
	"github.com/noah-isme/bimbel-api/pkg/response"
)

type cronRunner interface {
	Run(ctx context.Context) (*dto.CronSummary, error)
}

type sectionReconciler interface {
	Reconcile(ctx context.Context) (*dto.CronSummary, error)
}

// CronHandler exposes the externally-triggered batch jobs. Routes sit
// behind the shared cron bearer secret.
type CronHandler struct {
	gracePeriod     cronRunner
	paymentExpiry   cronRunner
	renewalReminder cronRunner
	meetingReminder cronRunner
	sections        sectionReconciler
	metrics         *service.MetricsService
}

// NewCronHandler builds a new handler.
func NewCronHandler(
	gracePeriod cronRunner,
	paymentExpiry cronRunner,
	renewalReminder cronRunner,
	meetingReminder cronRunner,
	sections sectionReconciler,
	metrics *service.MetricsService,
) *CronHandler {
	return &CronHandler{
		gracePeriod:     gracePeriod,
		paymentExpiry:   paymentExpiry,
		renewalReminder: renewalReminder,
		meetingReminder: meetingReminder,
		sections:        sections,
		metrics:         metrics,
	}
}

// GracePeriod runs the subscription expiry and slot release sweep.
func (h *CronHandler) GracePeriod(c *gin.Context) {
	h.run(c, h.gracePeriod.Run)
}

// PaymentExpiry voids lapsed checkout sessions.
func (h *CronHandler) PaymentExpiry(c *gin.Context) {
	h.run(c, h.paymentExpiry.Run)
}

// RenewalReminder opens renewal checkouts and reminds expiring students.
func (h *CronHandler) RenewalReminder(c *gin.Context) {
	h.run(c, h.renewalReminder.Run)
}

// MeetingReminder notifies students of imminent meetings.
func (h *CronHandler) MeetingReminder(c *gin.Context) {
	h.run(c, h.meetingReminder.Run)
}

// SectionReconcile resyncs drifted section counters.
func (h *CronHandler) SectionReconcile(c *gin.Context) {
	h.run(c, h.sections.Reconcile)
}

func (h *CronHandler) run(c *gin.Context, job func(ctx context.Context) (*dto.CronSummary, error)) {
	start := time.Now()
	summary, err := job(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveCronRun(summary.Job, summary.Processed, summary.Failed(), time.Since(start))
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
