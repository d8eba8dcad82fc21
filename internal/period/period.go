package period

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/smallbiznis/tirta/internal/apperror"
)

// Period is a billing month formatted as YYYY-MM. Periods sort lexically.
type Period string

var ErrInvalidPeriod = apperror.Validation("invalid_period", "period")

var pattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

func Parse(raw string) (Period, error) {
	raw = strings.TrimSpace(raw)
	if !pattern.MatchString(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	if _, err := time.Parse("2006-01", raw); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	return Period(raw), nil
}

// MustParse is for constants and tests.
func MustParse(raw string) Period {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Of returns the period containing t (in UTC).
func Of(t time.Time) Period {
	return Period(t.UTC().Format("2006-01"))
}

func (p Period) String() string { return string(p) }

// Start is the first instant of the period in UTC.
func (p Period) Start() time.Time {
	t, err := time.Parse("2006-01", string(p))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func (p Period) Previous() Period {
	return Of(p.Start().AddDate(0, -1, 0))
}

func (p Period) Next() Period {
	return Of(p.Start().AddDate(0, 1, 0))
}

// DueDate is the end of the period month: bills become overdue once it passes.
func (p Period) DueDate() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Label renders the period as "Januari 2025".
func (p Period) Label() string {
	start := p.Start()
	if start.IsZero() {
		return string(p)
	}
	return fmt.Sprintf("%s %d", monthNames[start.Month()-1], start.Year())
}

// MonthsOverdue counts started months past the due date at now; zero while the
// period is not yet due.
func (p Period) MonthsOverdue(now time.Time) int {
	due := p.DueDate()
	now = now.UTC()
	if !now.After(due) {
		return 0
	}
	months := (now.Year()-due.Year())*12 + int(now.Month()-due.Month())
	if now.After(due.AddDate(0, months, 0)) {
		months++
	}
	return months
}
