// Package metrics exposes Prometheus instrumentation for watchlist
// screening. All methods are nil-safe so callers can run without metrics
// wired.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	screenings     *prometheus.CounterVec
	matches        *prometheus.CounterVec
	fmuReports     *prometheus.CounterVec
	screenDuration *prometheus.HistogramVec
	listEntries    *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		screenings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_screening_total",
			Help: "Screening runs by list and outcome status.",
		}, []string{"list", "status"}),
		matches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_screening_matches_total",
			Help: "Watchlist matches by list and risk level.",
		}, []string{"list", "risk_level"}),
		fmuReports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_screening_fmu_reports_total",
			Help: "FMU report filings by outcome.",
		}, []string{"outcome"}),
		screenDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycgate_screening_duration_seconds",
			Help:    "Time to screen one application against one list.",
			Buckets: prometheus.DefBuckets,
		}, []string{"list"}),
		listEntries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kycgate_screening_list_entries",
			Help: "Entries loaded per watchlist.",
		}, []string{"list"}),
	}
}

func (m *Metrics) RecordScreening(list, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.screenings.WithLabelValues(list, status).Inc()
	m.screenDuration.WithLabelValues(list).Observe(took.Seconds())
}

func (m *Metrics) RecordMatch(list, riskLevel string) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(list, riskLevel).Inc()
}

func (m *Metrics) RecordFMUReport(outcome string) {
	if m == nil {
		return
	}
	m.fmuReports.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetListEntries(list string, n int) {
	if m == nil {
		return
	}
	m.listEntries.WithLabelValues(list).Set(float64(n))
}
