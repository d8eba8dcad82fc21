package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/tirta/internal/tariff"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(importRowRules, ImportRow{})
	return v
}

// importRowRules checks that the amounts of a spreadsheet row add up.
func importRowRules(sl validator.StructLevel) {
	row := sl.Current().Interface().(ImportRow)

	if row.Usage != tariff.Usage(row.MeterStart, row.MeterEnd) {
		sl.ReportError(row.Usage, "Usage", "usage", "usage_matches_meter", "")
	}
	if row.Tier1Usage+row.Tier2Usage != row.Usage {
		sl.ReportError(row.Tier2Usage, "Tier2Usage", "tier2_usage", "tiers_match_usage", "")
	}
	if row.Tier1Usage == 0 && row.Tier1Amount != 0 {
		sl.ReportError(row.Tier1Amount, "Tier1Amount", "tier1_amount", "amount_without_usage", "")
	}
	if row.Tier2Usage == 0 && row.Tier2Amount != 0 {
		sl.ReportError(row.Tier2Amount, "Tier2Amount", "tier2_amount", "amount_without_usage", "")
	}
	if row.AdminFee+row.Tier1Amount+row.Tier2Amount != row.TotalAmount {
		sl.ReportError(row.TotalAmount, "TotalAmount", "total_amount", "total_matches_items", "")
	}
}

// ValidateImportRow returns ErrInvalidImportRow describing every failed rule.
func ValidateImportRow(row ImportRow) error {
	err := validate.Struct(row)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidImportRow, err)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidImportRow, strings.Join(parts, ", "))
}

// Lines rebuilds the frozen bill lines from a row's supplied amounts. The
// per-unit rate is derived from the amount; the amount itself is kept exact.
func (row ImportRow) Lines() []tariff.Line {
	lines := []tariff.Line{{Type: tariff.ItemAdminFee, Rate: row.AdminFee, Amount: row.AdminFee}}
	if row.Tier1Usage > 0 {
		lines = append(lines, tariff.Line{
			Type:   tariff.ItemTier1,
			Usage:  row.Tier1Usage,
			Rate:   row.Tier1Amount / row.Tier1Usage,
			Amount: row.Tier1Amount,
		})
	}
	if row.Tier2Usage > 0 {
		lines = append(lines, tariff.Line{
			Type:   tariff.ItemTier2,
			Usage:  row.Tier2Usage,
			Rate:   row.Tier2Amount / row.Tier2Usage,
			Amount: row.Tier2Amount,
		})
	}
	return lines
}
