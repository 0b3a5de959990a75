// Package metrics provides observability for the sync engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks push/pull outcomes and external call latency.
type Metrics struct {
	PushSucceeded prometheus.Counter
	PushFailed    prometheus.Counter
	PushSkipped   prometheus.Counter
	PullTotal     prometheus.Counter
	PushDuration  prometheus.Histogram
	PushedFields  prometheus.Histogram
}

// New creates a Metrics instance with all sync engine metrics registered.
func New() *Metrics {
	return &Metrics{
		PushSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "losbridge_sync_push_succeeded_total",
			Help: "Total number of successful pushes to the external system",
		}),
		PushFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "losbridge_sync_push_failed_total",
			Help: "Total number of failed pushes to the external system",
		}),
		PushSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "losbridge_sync_push_skipped_total",
			Help: "Total number of pushes skipped because no mapped field had a value",
		}),
		PullTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "losbridge_sync_pull_total",
			Help: "Total number of pulls from the external system",
		}),
		PushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "losbridge_sync_push_duration_seconds",
			Help:    "Duration of push operations including the external call",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		PushedFields: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "losbridge_sync_pushed_fields",
			Help:    "Number of field updates per push",
			Buckets: []float64{1, 2, 5, 10, 20, 40},
		}),
	}
}

// ObservePush records the outcome and duration of one push.
func (m *Metrics) ObservePush(start time.Time, fieldCount int, err error) {
	m.PushDuration.Observe(time.Since(start).Seconds())
	m.PushedFields.Observe(float64(fieldCount))
	if err != nil {
		m.PushFailed.Inc()
		return
	}
	m.PushSucceeded.Inc()
}

// IncrementPushSkipped records a push that carried no mapped values.
func (m *Metrics) IncrementPushSkipped() {
	m.PushSkipped.Inc()
}

// IncrementPull records a pull from the external system.
func (m *Metrics) IncrementPull() {
	m.PullTotal.Inc()
}
