// Package metrics exposes the run counters scraped from the serve command.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "incentives"

// Metrics groups every collector of one process. Build it once per registry.
type Metrics struct {
	tradesProcessed   prometheus.Counter
	positionsInRange  prometheus.Counter
	readFailures      *prometheus.CounterVec
	holdersRewarded   prometheus.Gauge
	runDuration       *prometheus.HistogramVec
	lastCommittedWeek prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		tradesProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_processed_total",
			Help:      "Trades folded into a reward window.",
		}),
		positionsInRange: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_in_range_total",
			Help:      "Position credits produced across all trades.",
		}),
		readFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_failures_total",
			Help:      "Failed or skipped on-chain sub-reads by kind.",
		}, []string{"kind"}),
		holdersRewarded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "holders_rewarded",
			Help:      "Holders with a non-zero share in the last run.",
		}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a pipeline run by outcome.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"outcome"}),
		lastCommittedWeek: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_committed_week",
			Help:      "Week id of the last committed snapshot.",
		}),
	}
}

// The methods below accept a nil receiver so callers can run without metrics.

func (m *Metrics) TradesProcessed(n int) {
	if m == nil {
		return
	}
	m.tradesProcessed.Add(float64(n))
}

func (m *Metrics) PositionsInRange(n int) {
	if m == nil {
		return
	}
	m.positionsInRange.Add(float64(n))
}

// ReadFailure has the signature of dex.FailureHook.
func (m *Metrics) ReadFailure(kind string) {
	if m == nil {
		return
	}
	m.readFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) HoldersRewarded(n int) {
	if m == nil {
		return
	}
	m.holdersRewarded.Set(float64(n))
}

func (m *Metrics) RunFinished(started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.runDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
}

func (m *Metrics) Committed(week uint64) {
	if m == nil {
		return
	}
	m.lastCommittedWeek.Set(float64(week))
}
