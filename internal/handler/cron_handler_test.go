package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/middleware"
	"github.com/noah-isme/bimbel-api/pkg/response"
)

type cronRunnerMock struct {
	summary *dto.CronSummary
	err     error
	calls   int
}

func (m *cronRunnerMock) Run(ctx context.Context) (*dto.CronSummary, error) {
	m.calls++
	return m.summary, m.err
}

type sectionReconcilerMock struct {
	summary *dto.CronSummary
	calls   int
}

func (m *sectionReconcilerMock) Reconcile(ctx context.Context) (*dto.CronSummary, error) {
	m.calls++
	return m.summary, nil
}

func newCronRouter(handler *CronHandler, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	cron := router.Group("/cron", middleware.CronAuth(secret))
	cron.GET("/grace-period", handler.GracePeriod)
	cron.GET("/payment-expiry", handler.PaymentExpiry)
	cron.GET("/renewal-reminder", handler.RenewalReminder)
	cron.GET("/meeting-reminder", handler.MeetingReminder)
	cron.GET("/section-reconcile", handler.SectionReconcile)
	return router
}

func TestCronHandlerRunsJob(t *testing.T) {
	grace := &cronRunnerMock{summary: &dto.CronSummary{Job: "grace-period", Total: 3, Processed: 3}}
	handler := NewCronHandler(grace, &cronRunnerMock{}, &cronRunnerMock{}, &cronRunnerMock{}, &sectionReconcilerMock{}, nil)
	router := newCronRouter(handler, "cron-secret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/cron/grace-period", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, grace.calls)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "grace-period", data["job"])
	assert.Equal(t, float64(3), data["processed"])
}

func TestCronHandlerRejectsBadSecret(t *testing.T) {
	grace := &cronRunnerMock{summary: &dto.CronSummary{Job: "grace-period"}}
	handler := NewCronHandler(grace, &cronRunnerMock{}, &cronRunnerMock{}, &cronRunnerMock{}, &sectionReconcilerMock{}, nil)
	router := newCronRouter(handler, "cron-secret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/cron/grace-period", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, grace.calls)
}

func TestCronHandlerRejectsMissingHeader(t *testing.T) {
	handler := NewCronHandler(&cronRunnerMock{}, &cronRunnerMock{}, &cronRunnerMock{}, &cronRunnerMock{}, &sectionReconcilerMock{}, nil)
	router := newCronRouter(handler, "cron-secret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/cron/payment-expiry", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCronHandlerRejectsEmptyConfiguredSecret(t *testing.T) {
	handler := NewCronHandler(&cronRunnerMock{}, &cronRunnerMock{}, &cronRunnerMock{}, &cronRunnerMock{}, &sectionReconcilerMock{}, nil)
	router := newCronRouter(handler, "")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/cron/renewal-reminder", nil)
	req.Header.Set("Authorization", "Bearer anything")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCronHandlerSectionReconcile(t *testing.T) {
	sections := &sectionReconcilerMock{summary: &dto.CronSummary{Job: "section-reconcile", Total: 2, Processed: 2}}
	handler := NewCronHandler(&cronRunnerMock{}, &cronRunnerMock{}, &cronRunnerMock{}, &cronRunnerMock{}, sections, nil)
	router := newCronRouter(handler, "cron-secret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/cron/section-reconcile", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, sections.calls)
}
