// Package metrics exposes Prometheus collectors for the reminder dispatcher.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error stages reported in errors_total.
const (
	StageLoad    = "load"
	StageCompute = "compute"
	StagePublish = "publish"
	StagePersist = "persist"
)

// Metrics holds the dispatcher collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	fired        prometheus.Counter
	skipped      prometheus.Counter
	suppressed   prometheus.Counter
	missed       prometheus.Counter
	expired      prometheus.Counter
	errors       *prometheus.CounterVec
	tickDuration prometheus.Histogram
	tracked      prometheus.Gauge
}

// New creates the collectors and registers them on reg
// (prometheus.DefaultRegisterer when nil).
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		fired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_fired_total",
			Help:      "Announcements emitted for reminder occurrences",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_skipped_total",
			Help:      "Occurrences dropped by the ignore-next-occurrence flag",
		}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_suppressed_total",
			Help:      "Occurrences of inactive reminders that were not emitted",
		}),
		missed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_missed_total",
			Help:      "Occurrences found later than the missed grace period",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_expired_total",
			Help:      "Reminders that reached the end of their schedule",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_errors_total",
			Help:      "Dispatcher errors by stage",
		}, []string{"stage"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminders_tick_duration_seconds",
			Help:      "Duration of one dispatcher evaluation pass",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reminders_tracked",
			Help:      "Reminders with a held occurrence",
		}),
	}

	reg.MustRegister(
		m.fired,
		m.skipped,
		m.suppressed,
		m.missed,
		m.expired,
		m.errors,
		m.tickDuration,
		m.tracked,
	)

	return m
}

func (m *Metrics) Fired() {
	if m != nil {
		m.fired.Inc()
	}
}

func (m *Metrics) Skipped() {
	if m != nil {
		m.skipped.Inc()
	}
}

func (m *Metrics) Suppressed() {
	if m != nil {
		m.suppressed.Inc()
	}
}

func (m *Metrics) Missed() {
	if m != nil {
		m.missed.Inc()
	}
}

func (m *Metrics) Expired() {
	if m != nil {
		m.expired.Inc()
	}
}

// Error counts a failure in stage.
func (m *Metrics) Error(stage string) {
	if m != nil {
		m.errors.WithLabelValues(stage).Inc()
	}
}

// ObserveTick records how long a dispatcher pass took.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m != nil {
		m.tickDuration.Observe(d.Seconds())
	}
}

// SetTracked sets the number of reminders with a held occurrence.
func (m *Metrics) SetTracked(n int) {
	if m != nil {
		m.tracked.Set(float64(n))
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
