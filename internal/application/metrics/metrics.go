// Package metrics exposes Prometheus instrumentation for the application
// pipeline. Methods are nil-safe.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	decisions    *prometheus.CounterVec
	processing   prometheus.Histogram
	riskScores   prometheus.Histogram
	applications *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_application_decisions_total",
			Help: "Pipeline decisions by outcome and actor kind.",
		}, []string{"outcome", "actor"}),
		processing: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_application_processing_duration_seconds",
			Help:    "End-to-end pipeline duration from dispatch to decision.",
			Buckets: prometheus.DefBuckets,
		}),
		riskScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_application_risk_score",
			Help:    "Distribution of computed risk scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		applications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_applications_total",
			Help: "Application lifecycle events by kind.",
		}, []string{"event"}),
	}
}

func (m *Metrics) RecordDecision(outcome, actor string, took time.Duration, riskScore int) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome, actor).Inc()
	m.processing.Observe(took.Seconds())
	m.riskScores.Observe(float64(riskScore))
}

func (m *Metrics) RecordEvent(event string) {
	if m == nil {
		return
	}
	m.applications.WithLabelValues(event).Inc()
}
