package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the exchange counters. Registered once on the default
// registry at construction.
type Metrics struct {
	MatchesTotal       *prometheus.CounterVec
	MatchDuration      prometheus.Histogram
	SettlementsTotal   prometheus.Counter
	RoundingRejections prometheus.Counter
	InvariantAborts    prometheus.Counter
	FillVolume         prometheus.Counter
	CancelsTotal       prometheus.Counter
	JournalAppendLag   prometheus.Histogram
	OutboxPending      prometheus.Gauge
	EventsPublished    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		MatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matches_total",
				Help: "Total number of match attempts by outcome status",
			},
			[]string{"status"},
		),
		MatchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "match_duration_seconds",
				Help:    "End-to-end match latency, validation through settlement",
				Buckets: prometheus.DefBuckets,
			},
		),
		SettlementsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "settlements_total",
				Help: "Total number of settlements committed",
			},
		),
		RoundingRejections: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rounding_rejections_total",
				Help: "Matches rejected because the fill rounding loss exceeded the tolerance",
			},
		),
		InvariantAborts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "invariant_aborts_total",
				Help: "Matches aborted by an internal consistency check",
			},
		),
		FillVolume: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fill_volume_total",
				Help: "Cumulative taker asset volume filled across all matches",
			},
		),
		CancelsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cancels_total",
				Help: "Total number of order cancellations recorded",
			},
		),
		JournalAppendLag: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "journal_append_seconds",
				Help:    "Time to append and sync a settlement record",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),
		OutboxPending: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "outbox_pending_entries",
				Help: "Settlement events awaiting broker delivery",
			},
		),
		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_published_total",
				Help: "Events handed to the broker by delivery outcome",
			},
			[]string{"result"},
		),
	}
}

// RecordMatch records a completed match attempt.
func (m *Metrics) RecordMatch(status string, seconds float64) {
	m.MatchesTotal.WithLabelValues(status).Inc()
	m.MatchDuration.Observe(seconds)
}

// RecordSettlement records a committed settlement and its taker volume.
func (m *Metrics) RecordSettlement(takerVolume float64) {
	m.SettlementsTotal.Inc()
	m.FillVolume.Add(takerVolume)
}

func (m *Metrics) RecordPublish(ok bool) {
	if ok {
		m.EventsPublished.WithLabelValues("ok").Inc()
	} else {
		m.EventsPublished.WithLabelValues("error").Inc()
	}
}
