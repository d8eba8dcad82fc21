package domain

import (
	"context"
	"fmt"

	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	"github.com/smallbiznis/tirta/internal/config"
)

// EstimateInput is what an estimator knows about one customer.
type EstimateInput struct {
	CustomerNumber int64
	Previous       billdomain.MeterReading
	Supplied       map[int64]int64
}

// UsageEstimator decides the usage billed for a customer in a bulk run.
type UsageEstimator interface {
	Estimate(ctx context.Context, in EstimateInput) (int64, error)
}

// PreviousUsage bills the same usage as the previous period.
type PreviousUsage struct{}

func (PreviousUsage) Estimate(_ context.Context, in EstimateInput) (int64, error) {
	return in.Previous.Usage, nil
}

// Supplied uses the caller-provided usage for the customer and defers to Next
// when none was given. Without Next a missing value is ErrUsageNotSupplied.
type Supplied struct {
	Next UsageEstimator
}

func (s Supplied) Estimate(ctx context.Context, in EstimateInput) (int64, error) {
	if usage, ok := in.Supplied[in.CustomerNumber]; ok {
		if usage < 0 {
			return 0, fmt.Errorf("%w: %d", ErrInvalidUsage, usage)
		}
		return usage, nil
	}
	if s.Next == nil {
		return 0, ErrUsageNotSupplied
	}
	return s.Next.Estimate(ctx, in)
}

func RequireSupplied() UsageEstimator {
	return Supplied{}
}

// EstimatorForPolicy maps the configured policy name to an estimator. Unknown
// names fall back to previous usage.
func EstimatorForPolicy(policy string) UsageEstimator {
	if policy == config.EstimationSuppliedOnly {
		return RequireSupplied()
	}
	return Supplied{Next: PreviousUsage{}}
}
