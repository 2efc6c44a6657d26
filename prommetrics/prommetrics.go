// Package prommetrics exports prefetch cache events as Prometheus metrics.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	prefetch "github.com/luhtfiimanal/go-prefetch-archive"
)

// Metrics is the Prometheus implementation of prefetch.Metrics.
type Metrics struct {
	waitDuration prometheus.Histogram
	submitted    prometheus.Counter
	discarded    prometheus.Counter
	failed       prometheus.Counter
	inFlight     prometheus.Gauge
}

var _ prefetch.Metrics = (*Metrics)(nil)

// New registers the cache metrics on reg under namespace. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		waitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "prefetch",
			Name:      "wait_duration_milliseconds",
			Help:      "Time Get spent waiting for the head of the window",
			Buckets: []float64{
				0.01, // already fetched
				0.1,
				0.5,
				1,
				5,
				10,
				50,
				100,
				500,
				1000,
			},
		}),
		submitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prefetch",
			Name:      "submitted_total",
			Help:      "Fetches submitted to the worker pool",
		}),
		discarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prefetch",
			Name:      "discarded_total",
			Help:      "Prefetched entries dropped without being served",
		}),
		failed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prefetch",
			Name:      "failed_total",
			Help:      "Get calls that returned a fetch error",
		}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "prefetch",
			Name:      "window_entries",
			Help:      "Entries currently held in the prefetch window",
		}),
	}
}

func (m *Metrics) ObserveWait(d time.Duration) {
	if m == nil {
		return
	}
	m.waitDuration.Observe(float64(d) / float64(time.Millisecond))
}

func (m *Metrics) AddSubmitted(n int) {
	if m == nil {
		return
	}
	m.submitted.Add(float64(n))
}

func (m *Metrics) AddDiscarded(n int) {
	if m == nil {
		return
	}
	m.discarded.Add(float64(n))
}

func (m *Metrics) IncFailed() {
	if m == nil {
		return
	}
	m.failed.Inc()
}

func (m *Metrics) SetInFlight(n int) {
	if m == nil {
		return
	}
	m.inFlight.Set(float64(n))
}
