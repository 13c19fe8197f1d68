// Package metrics provides Prometheus metrics and the per-update report
// model delivered to metrics sinks.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Update dispatch metrics
	UpdatesTotal          *prometheus.CounterVec
	UpdateDurationSeconds *prometheus.HistogramVec
	FilterFailuresTotal   *prometheus.CounterVec

	// Webhook HTTP metrics
	WebhookRequestsTotal *prometheus.CounterVec
	HTTPErrorsTotal      *prometheus.CounterVec

	// Hosting metrics
	HostedBots     prometheus.Gauge
	BackgroundJobs *prometheus.GaugeVec

	// Telegram API client metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIDurationSeconds *prometheus.HistogramVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		UpdatesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "telehost_updates_total",
				Help: "Total number of dispatched updates by bot, type and outcome",
			},
			[]string{"bot", "update_type", "outcome"}, // outcome: success, error, unhandled, undecodable
		),

		UpdateDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "telehost_update_duration_seconds",
				Help:    "Update processing duration in seconds by bot and type",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"bot", "update_type"},
		),

		FilterFailuresTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "telehost_filter_failures_total",
				Help: "Total number of filter predicates that failed and were treated as non-matches",
			},
			[]string{"bot", "handler"},
		),

		WebhookRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "telehost_webhook_requests_total",
				Help: "Total number of webhook HTTP requests by status",
			},
			[]string{"status"}, // status: ok, unmapped, refused_shutdown
		),

		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "telehost_http_errors_total",
				Help: "Total HTTP errors by type and route",
			},
			[]string{"error_type", "route"},
		),

		HostedBots: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "telehost_hosted_bots",
				Help: "Number of bot runners currently routed by the webhook app",
			},
		),

		BackgroundJobs: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "telehost_background_jobs",
				Help: "Number of running background jobs by bot",
			},
			[]string{"bot"},
		),

		APIRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "telehost_api_requests_total",
				Help: "Total number of Telegram Bot API requests by method and status",
			},
			[]string{"method", "status"}, // status: success, error
		),

		APIDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "telehost_api_duration_seconds",
				Help:    "Telegram Bot API request duration in seconds by method",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method"},
		),
	}

	return m
}

// Emit records a finalized update report. Metrics therefore satisfies the
// Sink interface and can be used directly as a dispatch sink.
func (m *Metrics) Emit(_ context.Context, r *UpdateReport) {
	updateType := r.UpdateType
	if updateType == "" {
		updateType = "unknown"
	}
	m.UpdatesTotal.WithLabelValues(r.Bot, updateType, string(r.Outcome)).Inc()
	m.UpdateDurationSeconds.WithLabelValues(r.Bot, updateType).Observe(r.ProcessingDuration.Seconds())
	for _, ft := range r.FilterTimings {
		if ft.Err != "" {
			m.FilterFailuresTotal.WithLabelValues(r.Bot, ft.Handler).Inc()
		}
	}
}

// RecordWebhookRequest records a webhook HTTP request outcome
func (m *Metrics) RecordWebhookRequest(status string) {
	m.WebhookRequestsTotal.WithLabelValues(status).Inc()
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, route string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, route).Inc()
}

// RecordAPIRequest records a Telegram Bot API request
func (m *Metrics) RecordAPIRequest(method, status string, duration float64) {
	m.APIRequestsTotal.WithLabelValues(method, status).Inc()
	m.APIDurationSeconds.WithLabelValues(method).Observe(duration)
}
