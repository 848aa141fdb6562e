// Package metrics registers the service's Prometheus instruments. Helpers
// are nil-safe so code paths exercised before Init (tests, mostly) do not
// panic.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "receiptd_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	receiptsCreated   *prometheus.CounterVec
	registrarAttempts *prometheus.CounterVec
	emailsSent        *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
)

// Init registers all instruments with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		receiptsCreated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "receipts_created_total",
				Help: "Receipt creation requests by result",
			},
			[]string{"result"},
		)
		registrarAttempts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "registrar_attempts_total",
				Help: "Income registration attempts against the tax service by result",
			},
			[]string{"result"},
		)
		emailsSent = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "emails_sent_total",
				Help: "Outbound emails by kind and result",
			},
			[]string{"kind", "result"},
		)
		requestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency by route and status class",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "class"},
		)

		prometheus.MustRegister(
			receiptsCreated,
			registrarAttempts,
			emailsSent,
			requestLatency,
		)
	})
}

// IncReceiptCreated counts one create-receipt outcome.
func IncReceiptCreated(result string) {
	if result == "" {
		result = resultSuccess
	}
	if receiptsCreated != nil {
		receiptsCreated.WithLabelValues(result).Inc()
	}
}

// IncRegistrarAttempt counts one registration attempt outcome.
func IncRegistrarAttempt(result string) {
	if result == "" {
		result = resultSuccess
	}
	if registrarAttempts != nil {
		registrarAttempts.WithLabelValues(result).Inc()
	}
}

// IncEmailSent counts one outbound email by kind ("receipt" or "admin_alert").
func IncEmailSent(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if emailsSent != nil {
		emailsSent.WithLabelValues(kind, result).Inc()
	}
}

// ObserveRequest records one HTTP request's latency.
func ObserveRequest(route, class string, duration time.Duration) {
	if requestLatency != nil {
		requestLatency.WithLabelValues(route, class).Observe(duration.Seconds())
	}
}

// Exported result constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
