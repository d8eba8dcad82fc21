package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/tirta/internal/apperror"
	"gorm.io/gorm"
)

const (
	BulkRunCompleted = "completed"
	BulkRunCancelled = "cancelled"
	BulkRunFailed    = "failed"
)

const (
	FailureReasonDeadlineExceeded     = "deadline_exceeded"
	FailureReasonCancelled            = "cancelled"
	FailureReasonDBLockTimeout        = "db_lock_timeout"
	FailureReasonSerializationFailure = "serialization_failure"
	FailureReasonUniqueViolation      = "unique_violation"
	FailureReasonForbidden            = "forbidden"
	FailureReasonBusinessRule         = "business_rule"
	FailureReasonTransaction          = "transaction_failure"
	FailureReasonUnknown              = "unknown"
)

// BulkMetrics tracks bulk bill generation runs on the prometheus registry
// scraped at /metrics.
type BulkMetrics struct {
	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
	customerDuration prometheus.Histogram
	skips            *prometheus.CounterVec
	failures         *prometheus.CounterVec
}

func NewBulkMetrics(cfg Config) *BulkMetrics {
	return NewBulkMetricsWithRegisterer(prometheus.DefaultRegisterer, cfg)
}

func NewBulkMetricsWithRegisterer(registerer prometheus.Registerer, cfg Config) *BulkMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := prometheus.Labels{"service": cfg.ServiceName}

	m := &BulkMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tirta_bulk_runs_total",
			Help:        "Bulk bill generation runs by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "tirta_bulk_run_duration_seconds",
			Help:        "Wall time of a bulk bill generation run.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		customerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "tirta_bulk_customer_duration_seconds",
			Help:        "Time spent on one customer inside a bulk run.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tirta_bulk_skips_total",
			Help:        "Customers skipped by bulk generation by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tirta_bulk_failures_total",
			Help:        "Per-customer bulk failures by classified cause.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
	}

	m.runs = registerCounterVec(registerer, m.runs)
	m.skips = registerCounterVec(registerer, m.skips)
	m.failures = registerCounterVec(registerer, m.failures)
	m.runDuration = registerHistogram(registerer, m.runDuration)
	m.customerDuration = registerHistogram(registerer, m.customerDuration)
	return m
}

func (m *BulkMetrics) ObserveRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(duration.Seconds())
}

func (m *BulkMetrics) ObserveCustomer(duration time.Duration) {
	if m == nil {
		return
	}
	m.customerDuration.Observe(duration.Seconds())
}

func (m *BulkMetrics) IncSkip(reason string) {
	if m == nil {
		return
	}
	m.skips.WithLabelValues(reason).Inc()
}

func (m *BulkMetrics) IncFailure(err error) {
	if m == nil || err == nil {
		return
	}
	m.failures.WithLabelValues(ClassifyFailureReason(err)).Inc()
}

// ClassifyFailureReason maps an error from a per-customer transaction onto a
// bounded label set.
func ClassifyFailureReason(err error) string {
	switch {
	case err == nil:
		return FailureReasonUnknown
	case errors.Is(err, context.DeadlineExceeded):
		return FailureReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return FailureReasonCancelled
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return FailureReasonUniqueViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return FailureReasonDBLockTimeout
		case "40001", "40P01":
			return FailureReasonSerializationFailure
		case "23505":
			return FailureReasonUniqueViolation
		}
	}

	switch apperror.KindOf(err) {
	case apperror.KindUnauthorized:
		return FailureReasonForbidden
	case apperror.KindValidation, apperror.KindConflict, apperror.KindNotFound:
		return FailureReasonBusinessRule
	case apperror.KindTransaction:
		return FailureReasonTransaction
	}
	return FailureReasonUnknown
}

func registerCounterVec(registerer prometheus.Registerer, collector *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, collector prometheus.Histogram) prometheus.Histogram {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(prometheus.Histogram); ok {
				return existing
			}
		}
	}
	return collector
}
