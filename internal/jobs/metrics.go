package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs and the alert
// pipeline.
type Metrics struct {
	runs       *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	alertsSent *prometheus.CounterVec
	clamps     *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AlertSent counts a delivered reminder for the threshold label.
func (m *Metrics) AlertSent(threshold string) {
	if m == nil {
		return
	}
	m.alertsSent.WithLabelValues(threshold).Inc()
}

// IntegrityClamp counts a negative computed amount that was clamped to zero.
func (m *Metrics) IntegrityClamp(field string) {
	if m == nil {
		return
	}
	m.clamps.WithLabelValues(field).Inc()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revtax_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revtax_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "revtax_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	alertsSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revtax_alerts_sent_total",
		Help: "Tax deadline reminders dispatched, by threshold.",
	}, []string{"threshold"})
	clamps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revtax_integrity_clamps_total",
		Help: "Negative computed amounts clamped to zero, by field.",
	}, []string{"field"})
	registerer.MustRegister(runs, failures, duration, alertsSent, clamps)
	return &Metrics{runs: runs, failures: failures, duration: duration, alertsSent: alertsSent, clamps: clamps}
}
