package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics records metadata for expiry sweep executions.
type SweepMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	updated  prometheus.Counter
}

// NewSweepMetrics registers the sweep metrics on the provided registerer.
func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	if reg == nil {
		return &SweepMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sweep_duration_seconds",
		Help:    "Duration of expiry sweep runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_success",
		Help: "Successful expiry sweep executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_failure",
		Help: "Failed expiry sweep executions.",
	}, []string{"job"})
	updated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweep_rows_updated_total",
		Help: "Licenses and subscriptions transitioned to expired.",
	})
	reg.MustRegister(duration, success, failure, updated)
	return &SweepMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		updated:  updated,
	}
}

// ObserveDuration records the duration for the named job.
func (s *SweepMetrics) ObserveDuration(job string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (s *SweepMetrics) IncSuccess(job string) {
	if s == nil || s.success == nil {
		return
	}
	s.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (s *SweepMetrics) IncFailure(job string) {
	if s == nil || s.failure == nil {
		return
	}
	s.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AddUpdated records how many rows a sweep transitioned.
func (s *SweepMetrics) AddUpdated(count int) {
	if s == nil || s.updated == nil || count <= 0 {
		return
	}
	s.updated.Add(float64(count))
}

// AdmissionMetrics counts rate limiter decisions per tier.
type AdmissionMetrics struct {
	decisions *prometheus.CounterVec
}

// NewAdmissionMetrics registers the admission counters on the provided registerer.
func NewAdmissionMetrics(reg prometheus.Registerer) *AdmissionMetrics {
	if reg == nil {
		return &AdmissionMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "admission_decisions_total",
		Help: "Rate limiter admit/reject decisions by tier.",
	}, []string{"tier", "outcome"})
	reg.MustRegister(decisions)
	return &AdmissionMetrics{decisions: decisions}
}

// IncAllowed counts an admitted request on the tier.
func (a *AdmissionMetrics) IncAllowed(tier string) {
	if a == nil || a.decisions == nil {
		return
	}
	a.decisions.WithLabelValues(normalizeLabel(tier), "allowed").Inc()
}

// IncRejected counts a rejected request on the tier.
func (a *AdmissionMetrics) IncRejected(tier string) {
	if a == nil || a.decisions == nil {
		return
	}
	a.decisions.WithLabelValues(normalizeLabel(tier), "rejected").Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
