package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EntitiesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmaug_entities_total",
			Help: "Total number of entities processed by kind and action",
		},
		[]string{"kind", "action"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "osmaug_run_duration_seconds",
			Help:    "Time taken to apply one change file, from open to commit or abort",
			Buckets: prometheus.DefBuckets,
		},
	)

	DiffPassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "osmaug_diff_pass_duration_seconds",
			Help:    "Time taken to construct and emit the augmented diff",
			Buckets: prometheus.DefBuckets,
		},
	)

	WritePassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "osmaug_write_pass_duration_seconds",
			Help:    "Time taken to apply the change stream to the store",
			Buckets: prometheus.DefBuckets,
		},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmaug_runs_total",
			Help: "Total number of change applications by outcome",
		},
		[]string{"outcome"}, // committed, dry_run, error
	)
)

func init() {
	prometheus.MustRegister(EntitiesTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(DiffPassDuration)
	prometheus.MustRegister(WritePassDuration)
	prometheus.MustRegister(RunsTotal)
}

// Handler returns the Prometheus HTTP handler, served by the CLI when
// --metrics-addr is set.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
