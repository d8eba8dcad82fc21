package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/tirta/internal/apperror"
	"gorm.io/gorm"
)

func TestClassifyFailureReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: fmt.Errorf("customer 9: %w", context.DeadlineExceeded), want: FailureReasonDeadlineExceeded},
		{name: "cancelled", err: context.Canceled, want: FailureReasonCancelled},
		{name: "lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: FailureReasonDBLockTimeout},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: FailureReasonSerializationFailure},
		{name: "unique", err: gorm.ErrDuplicatedKey, want: FailureReasonUniqueViolation},
		{name: "forbidden", err: apperror.Unauthorized("forbidden"), want: FailureReasonForbidden},
		{name: "business_rule", err: apperror.Conflict("reading_exists"), want: FailureReasonBusinessRule},
		{name: "transaction", err: apperror.Transaction(errors.New("boom")), want: FailureReasonTransaction},
		{name: "unknown", err: errors.New("boom"), want: FailureReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyFailureReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestBulkMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBulkMetricsWithRegisterer(reg, Config{ServiceName: "tirta"})

	m.ObserveRun(BulkRunCompleted, 2*time.Second)
	m.IncSkip("bill_exists")
	m.IncSkip("bill_exists")
	m.IncFailure(&pgconn.PgError{Code: "40001"})

	if got := testutil.ToFloat64(m.runs.WithLabelValues(BulkRunCompleted)); got != 1 {
		t.Fatalf("expected 1 completed run, got %v", got)
	}
	if got := testutil.ToFloat64(m.skips.WithLabelValues("bill_exists")); got != 2 {
		t.Fatalf("expected 2 skips, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues(FailureReasonSerializationFailure)); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}

	again := NewBulkMetricsWithRegisterer(reg, Config{ServiceName: "tirta"})
	again.IncSkip("bill_exists")
	if got := testutil.ToFloat64(m.skips.WithLabelValues("bill_exists")); got != 3 {
		t.Fatalf("expected re-registration to share collectors, got %v", got)
	}
}
