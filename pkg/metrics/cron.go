package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Alert outcomes recorded per scanned entity.
const (
	OutcomeEmitted    = "emitted"
	OutcomeSuppressed = "suppressed"
	OutcomeFailed     = "failed"
	OutcomeSkipped    = "skipped"
)

// CronJobMetrics records metadata for scheduled jobs.
type CronJobMetrics struct {
	duration    *prometheus.HistogramVec
	success     *prometheus.CounterVec
	failure     *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	scanned     *prometheus.CounterVec
	alerts      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	swept       prometheus.Counter
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Duration of cron jobs in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		success: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "job_success",
			Help: "Successful cron job executions.",
		}, []string{"job"}),
		failure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "job_failure",
			Help: "Failed cron job executions.",
		}, []string{"job"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "job_skipped",
			Help: "Ticks dropped because the job was already running.",
		}, []string{"job", "reason"}),
		scanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_entities_total",
			Help: "Entities returned by detector queries.",
		}, []string{"job"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_alerts_total",
			Help: "Per-entity alert outcomes.",
		}, []string{"job", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status transitions applied by scans.",
		}, []string{"status"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_swept_total",
			Help: "Notifications removed by the retention sweep.",
		}),
	}
	reg.MustRegister(m.duration, m.success, m.failure, m.skipped, m.scanned, m.alerts, m.transitions, m.swept)
	return m
}

// ObserveDuration records the duration for the named job.
func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncSkipped counts a tick that was dropped instead of run.
func (c *CronJobMetrics) IncSkipped(job, reason string) {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.WithLabelValues(normalizeLabel(job), normalizeLabel(reason)).Inc()
}

// AddScanned adds the size of a detector result set.
func (c *CronJobMetrics) AddScanned(job string, n int) {
	if c == nil || c.scanned == nil || n <= 0 {
		return
	}
	c.scanned.WithLabelValues(normalizeLabel(job)).Add(float64(n))
}

// IncAlert records one per-entity outcome.
func (c *CronJobMetrics) IncAlert(job, outcome string) {
	if c == nil || c.alerts == nil {
		return
	}
	c.alerts.WithLabelValues(normalizeLabel(job), normalizeLabel(outcome)).Inc()
}

// IncTransition records an applied order status change.
func (c *CronJobMetrics) IncTransition(status string) {
	if c == nil || c.transitions == nil {
		return
	}
	c.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// AddSwept records notifications deleted by retention.
func (c *CronJobMetrics) AddSwept(n int64) {
	if c == nil || c.swept == nil || n <= 0 {
		return
	}
	c.swept.Add(float64(n))
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
