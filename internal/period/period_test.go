package period

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		raw   string
		valid bool
	}{
		{"2025-01", true},
		{" 2025-12 ", true},
		{"2025-13", false},
		{"2025-00", false},
		{"2025-1", false},
		{"25-01", false},
		{"2025/01", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			p, err := Parse(tc.raw)
			if tc.valid {
				require.NoError(t, err)
				assert.Len(t, p.String(), 7)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidPeriod))
		})
	}
}

func TestNavigation(t *testing.T) {
	assert.Equal(t, Period("2024-12"), MustParse("2025-01").Previous())
	assert.Equal(t, Period("2025-01"), MustParse("2024-12").Next())
	assert.Equal(t, "Maret 2025", MustParse("2025-03").Label())
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), MustParse("2025-03").DueDate())
	assert.True(t, MustParse("2024-12") < MustParse("2025-01"))
}

func TestMonthsOverdue(t *testing.T) {
	p := MustParse("2025-01")

	assert.Equal(t, 0, p.MonthsOverdue(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, p.MonthsOverdue(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, p.MonthsOverdue(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, p.MonthsOverdue(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, p.MonthsOverdue(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)))
}
