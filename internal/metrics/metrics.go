package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/simaogato/bookvalue-backend/internal/domain"
)

const (
	QuoteOutcomeOK          = "ok"
	QuoteOutcomeUnavailable = "unavailable"
	QuoteOutcomeError       = "error"
)

const (
	JobReasonDeadlineExceeded     = "deadline_exceeded"
	JobReasonCanceled             = "canceled"
	JobReasonDBLockTimeout        = "db_lock_timeout"
	JobReasonSerializationFailure = "serialization_failure"
	JobReasonUniqueViolation      = "unique_violation"
	JobReasonUpstream             = "upstream"
	JobReasonUnknown              = "unknown"
)

// Metrics holds the valuation engine's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	alertsChecked      prometheus.Counter
	alertsTriggered    prometheus.Counter
	alertsFailed       prometheus.Counter
	snapshotsGenerated *prometheus.CounterVec
	snapshotsFailed    *prometheus.CounterVec
	quoteFetches       *prometheus.CounterVec
	jobRuns            *prometheus.CounterVec
	jobErrors          *prometheus.CounterVec
	jobDuration        *prometheus.HistogramVec
}

// New registers the collectors with registerer, or the default registerer when nil
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		alertsChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookvalue_alerts_checked_total",
			Help: "Price alerts evaluated.",
		}),
		alertsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookvalue_alerts_triggered_total",
			Help: "Price alerts that produced a notification.",
		}),
		alertsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookvalue_alerts_failed_total",
			Help: "Price alerts whose evaluation failed for a pass.",
		}),
		snapshotsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookvalue_snapshots_generated_total",
			Help: "Analytics snapshots written by subject kind and time frame.",
		}, []string{"subject_kind", "time_frame"}),
		snapshotsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookvalue_snapshots_failed_total",
			Help: "Analytics snapshot generations that failed.",
		}, []string{"subject_kind", "time_frame"}),
		quoteFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookvalue_quote_fetches_total",
			Help: "Quote source calls by outcome.",
		}, []string{"outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookvalue_job_runs_total",
			Help: "Scheduled job runs by name.",
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookvalue_job_errors_total",
			Help: "Scheduled job errors by low-cardinality reason.",
		}, []string{"job", "reason"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookvalue_job_duration_seconds",
			Help:    "Scheduled job latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"job"}),
	}

	registerer.MustRegister(
		m.alertsChecked,
		m.alertsTriggered,
		m.alertsFailed,
		m.snapshotsGenerated,
		m.snapshotsFailed,
		m.quoteFetches,
		m.jobRuns,
		m.jobErrors,
		m.jobDuration,
	)

	return m
}

// ObserveAlertPass records the totals of one evaluation pass
func (m *Metrics) ObserveAlertPass(checked, triggered, failed int) {
	if m == nil {
		return
	}
	m.alertsChecked.Add(float64(checked))
	m.alertsTriggered.Add(float64(triggered))
	m.alertsFailed.Add(float64(failed))
}

func (m *Metrics) IncSnapshot(kind domain.SubjectKind, tf domain.TimeFrame, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.snapshotsFailed.WithLabelValues(string(kind), string(tf)).Inc()
		return
	}
	m.snapshotsGenerated.WithLabelValues(string(kind), string(tf)).Inc()
}

func (m *Metrics) IncQuoteFetch(outcome string) {
	if m == nil {
		return
	}
	m.quoteFetches.WithLabelValues(outcome).Inc()
}

// ObserveJob records a job run, its latency and, on failure, a reason label
func (m *Metrics) ObserveJob(job string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
	if err != nil {
		m.jobErrors.WithLabelValues(job, ClassifyJobReason(err)).Inc()
	}
}

// ClassifyJobReason maps an error to a low-cardinality label
func ClassifyJobReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return JobReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return JobReasonCanceled
	case errors.Is(err, domain.ErrQuoteUpstream), errors.Is(err, domain.ErrQuoteUnavailable):
		return JobReasonUpstream
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "55P03":
			return JobReasonDBLockTimeout
		case "40001":
			return JobReasonSerializationFailure
		case "23505":
			return JobReasonUniqueViolation
		}
	}

	return JobReasonUnknown
}
