package tariff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	return Config{Tier1Limit: 40, Tier1Rate: 1800, Tier2Rate: 3000, AdminFee: 3000, PenaltyPerMonth: 5000}
}

func TestComputeTierBoundary(t *testing.T) {
	cases := []struct {
		name      string
		usage     int64
		tier1     int64
		tier2     int64
		wantTotal int64
	}{
		{name: "zero usage charges admin fee only", usage: 0, tier1: 0, tier2: 0, wantTotal: 3000},
		{name: "below limit", usage: 12, tier1: 12, tier2: 0, wantTotal: 3000 + 12*1800},
		{name: "at limit", usage: 40, tier1: 40, tier2: 0, wantTotal: 3000 + 40*1800},
		{name: "one above limit", usage: 41, tier1: 40, tier2: 1, wantTotal: 3000 + 40*1800 + 3000},
		{name: "far above limit", usage: 100, tier1: 40, tier2: 60, wantTotal: 3000 + 40*1800 + 60*3000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Compute(tc.usage, testConfig())
			assert.Equal(t, tc.tier1, b.Tier1Usage)
			assert.Equal(t, tc.tier2, b.Tier2Usage)
			assert.Equal(t, tc.wantTotal, b.TotalAmount)
			assert.Equal(t, b.AdminFee+b.Tier1Amount+b.Tier2Amount, b.TotalAmount)
		})
	}
}

func TestLinesSumToTotal(t *testing.T) {
	for _, usage := range []int64{0, 1, 40, 41, 250} {
		b := Compute(usage, testConfig())
		var sum int64
		for _, line := range b.Lines() {
			sum += line.Amount
			if line.Type == ItemAdminFee {
				continue
			}
			assert.Equal(t, line.Usage*line.Rate, line.Amount, "line %s", line.Type)
		}
		assert.Equal(t, b.TotalAmount, sum, "usage %d", usage)
	}
}

func TestAdminFeeLineIsFlat(t *testing.T) {
	lines := Compute(0, testConfig()).Lines()
	assert.Len(t, lines, 1)
	assert.Equal(t, ItemAdminFee, lines[0].Type)
	assert.Equal(t, int64(3000), lines[0].Amount)
}

func TestUsageClampsNegative(t *testing.T) {
	assert.Equal(t, int64(0), Usage(120, 100))
	assert.Equal(t, int64(0), Usage(100, 100))
	assert.Equal(t, int64(15), Usage(100, 115))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := testConfig()
	cfg.Tier2Rate = -1
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))
}
