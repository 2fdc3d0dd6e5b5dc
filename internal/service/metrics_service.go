package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the application metrics.
type MetricsService struct {
	registry *prometheus.Registry

	httpDuration  *prometheus.HistogramVec
	httpTotal     *prometheus.CounterVec
	webhookTotal  *prometheus.CounterVec
	cronDuration  *prometheus.HistogramVec
	cronProcessed *prometheus.CounterVec
	cronErrors    *prometheus.CounterVec
}

// NewMetricsService builds the registry with process and Go collectors
// plus the application metric families.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &MetricsService{
		registry: registry,
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "path", "status"}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_webhook_total",
			Help: "Gateway webhook deliveries by outcome.",
		}, []string{"outcome"}),
		cronDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_run_duration_seconds",
			Help:    "Batch job run duration.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		cronProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_records_processed_total",
			Help: "Records successfully transitioned per batch job.",
		}, []string{"job"}),
		cronErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_record_errors_total",
			Help: "Per-record failures per batch job.",
		}, []string{"job"}),
	}

	registry.MustRegister(s.httpDuration, s.httpTotal, s.webhookTotal,
		s.cronDuration, s.cronProcessed, s.cronErrors)
	return s
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	s.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	s.httpTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// ObserveWebhook records one gateway delivery by outcome
// (processed, duplicate, rejected, error).
func (s *MetricsService) ObserveWebhook(outcome string) {
	s.webhookTotal.WithLabelValues(outcome).Inc()
}

// ObserveCronRun records one batch job run.
func (s *MetricsService) ObserveCronRun(job string, processed, failed int, duration time.Duration) {
	s.cronDuration.WithLabelValues(job).Observe(duration.Seconds())
	s.cronProcessed.WithLabelValues(job).Add(float64(processed))
	s.cronErrors.WithLabelValues(job).Add(float64(failed))
}

// Handler exposes the registry for scraping.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
