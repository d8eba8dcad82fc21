package domain

import (
	"context"
	"testing"

	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimators(t *testing.T) {
	ctx := context.Background()
	in := EstimateInput{
		CustomerNumber: 7,
		Previous:       billdomain.MeterReading{Usage: 12},
	}

	usage, err := PreviousUsage{}.Estimate(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(12), usage)

	_, err = RequireSupplied().Estimate(ctx, in)
	assert.ErrorIs(t, err, ErrUsageNotSupplied)

	in.Supplied = map[int64]int64{7: 30}
	usage, err = RequireSupplied().Estimate(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(30), usage)

	in.Supplied = map[int64]int64{8: 30}
	usage, err = EstimatorForPolicy("previous_usage").Estimate(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(12), usage)

	in.Supplied = map[int64]int64{7: -1}
	_, err = EstimatorForPolicy("previous_usage").Estimate(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidUsage)
}
