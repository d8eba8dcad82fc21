package domain

import (
	"context"

	"github.com/smallbiznis/tirta/internal/apperror"
	"github.com/smallbiznis/tirta/internal/tariff"
)

// UpdateTariffRequest changes only the fields that are set.
type UpdateTariffRequest struct {
	Tier1Limit      *int64 `json:"tier1_limit"`
	Tier1Rate       *int64 `json:"tier1_rate"`
	Tier2Rate       *int64 `json:"tier2_rate"`
	AdminFee        *int64 `json:"admin_fee"`
	PenaltyPerMonth *int64 `json:"penalty_per_month"`
}

type Service interface {
	// Current is the file-based tariff with stored overrides applied.
	Current(ctx context.Context) (tariff.Config, error)
	UpdateTariff(ctx context.Context, req UpdateTariffRequest) (tariff.Config, error)
}

var ErrInvalidSetting = apperror.Validation("invalid_setting", "settings")
