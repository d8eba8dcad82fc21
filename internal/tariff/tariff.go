package tariff

import (
	"fmt"

	"github.com/smallbiznis/tirta/internal/apperror"
)

// Config is the tariff in force when a bill is computed. Rates are rupiah per
// cubic meter; fees are rupiah per bill.
type Config struct {
	Tier1Limit      int64 `json:"tier1_limit" mapstructure:"tier1Limit"`
	Tier1Rate       int64 `json:"tier1_rate" mapstructure:"tier1Rate"`
	Tier2Rate       int64 `json:"tier2_rate" mapstructure:"tier2Rate"`
	AdminFee        int64 `json:"admin_fee" mapstructure:"adminFee"`
	PenaltyPerMonth int64 `json:"penalty_per_month" mapstructure:"penaltyPerMonth"`
}

func DefaultConfig() Config {
	return Config{
		Tier1Limit:      40,
		Tier1Rate:       1800,
		Tier2Rate:       3000,
		AdminFee:        3000,
		PenaltyPerMonth: 5000,
	}
}

var ErrInvalidConfig = apperror.Validation("invalid_tariff", "tariff")

func (c Config) Validate() error {
	switch {
	case c.Tier1Limit < 0:
		return fmt.Errorf("%w: tier1_limit must not be negative", ErrInvalidConfig)
	case c.Tier1Rate < 0, c.Tier2Rate < 0:
		return fmt.Errorf("%w: rates must not be negative", ErrInvalidConfig)
	case c.AdminFee < 0:
		return fmt.Errorf("%w: admin_fee must not be negative", ErrInvalidConfig)
	case c.PenaltyPerMonth < 0:
		return fmt.Errorf("%w: penalty_per_month must not be negative", ErrInvalidConfig)
	}
	return nil
}

type ItemType string

const (
	ItemAdminFee ItemType = "admin_fee"
	ItemTier1    ItemType = "tier_1"
	ItemTier2    ItemType = "tier_2"
)

// Line is one frozen charge of a bill.
type Line struct {
	Type   ItemType `json:"type"`
	Usage  int64    `json:"usage"`
	Rate   int64    `json:"rate"`
	Amount int64    `json:"amount"`
}

type Breakdown struct {
	Usage       int64 `json:"usage"`
	Tier1Usage  int64 `json:"tier1_usage"`
	Tier2Usage  int64 `json:"tier2_usage"`
	Tier1Rate   int64 `json:"tier1_rate"`
	Tier2Rate   int64 `json:"tier2_rate"`
	Tier1Amount int64 `json:"tier1_amount"`
	Tier2Amount int64 `json:"tier2_amount"`
	AdminFee    int64 `json:"admin_fee"`
	TotalAmount int64 `json:"total_amount"`
}

// Usage derives consumption from two meter positions. A meter that reads lower
// than its start (replacement, rollover) counts as zero usage.
func Usage(meterStart, meterEnd int64) int64 {
	if meterEnd < meterStart {
		return 0
	}
	return meterEnd - meterStart
}

// Compute prices usage against cfg. usage must already be clamped with Usage.
func Compute(usage int64, cfg Config) Breakdown {
	tier1 := min(usage, cfg.Tier1Limit)
	tier2 := max(usage-cfg.Tier1Limit, 0)

	b := Breakdown{
		Usage:       usage,
		Tier1Usage:  tier1,
		Tier2Usage:  tier2,
		Tier1Rate:   cfg.Tier1Rate,
		Tier2Rate:   cfg.Tier2Rate,
		Tier1Amount: tier1 * cfg.Tier1Rate,
		Tier2Amount: tier2 * cfg.Tier2Rate,
		AdminFee:    cfg.AdminFee,
	}
	b.TotalAmount = b.AdminFee + b.Tier1Amount + b.Tier2Amount
	return b
}

// Lines returns the bill items for the breakdown. The admin fee is always
// present; tier lines are emitted only when they carry usage.
func (b Breakdown) Lines() []Line {
	lines := []Line{{Type: ItemAdminFee, Usage: 0, Rate: b.AdminFee, Amount: b.AdminFee}}
	if b.Tier1Usage > 0 {
		lines = append(lines, Line{Type: ItemTier1, Usage: b.Tier1Usage, Rate: b.Tier1Rate, Amount: b.Tier1Amount})
	}
	if b.Tier2Usage > 0 {
		lines = append(lines, Line{Type: ItemTier2, Usage: b.Tier2Usage, Rate: b.Tier2Rate, Amount: b.Tier2Amount})
	}
	return lines
}
