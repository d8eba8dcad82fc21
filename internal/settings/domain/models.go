package domain

import "time"

type Setting struct {
	Key       string    `gorm:"column:name;primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Setting) TableName() string { return "settings" }

const (
	KeyTier1Limit      = "tier1_limit"
	KeyTier1Rate       = "tier1_rate"
	KeyTier2Rate       = "tier2_rate"
	KeyAdminFee        = "admin_fee"
	KeyPenaltyPerMonth = "penalty_per_month"
)
