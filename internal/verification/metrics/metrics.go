// Package metrics exposes Prometheus instrumentation for provider
// verification calls. Methods are nil-safe.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_verification_attempts_total",
			Help: "Verification attempts by type, provider and outcome.",
		}, []string{"type", "provider", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycgate_verification_duration_seconds",
			Help:    "Provider call latency by type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_verification_retries_total",
			Help: "Retried verification attempts by type.",
		}, []string{"type"}),
	}
}

func (m *Metrics) RecordAttempt(typ, provider, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(typ, provider, status).Inc()
	m.duration.WithLabelValues(typ).Observe(took.Seconds())
}

func (m *Metrics) RecordRetry(typ string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(typ).Inc()
}
