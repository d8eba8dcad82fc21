package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Customer is a billed account. TotalBill, TotalPaid, OutstandingBalance and
// Balance are cached aggregates owned by the balance reconciler.
type Customer struct {
	ID                 snowflake.ID   `gorm:"primaryKey" json:"id"`
	CustomerNumber     int64          `gorm:"not null;uniqueIndex" json:"customer_number"`
	Name               string         `gorm:"not null" json:"name"`
	Phone              string         `json:"phone,omitempty"`
	Address            string         `json:"address,omitempty"`
	TotalBill          int64          `gorm:"not null;default:0" json:"total_bill"`
	TotalPaid          int64          `gorm:"not null;default:0" json:"total_paid"`
	OutstandingBalance int64          `gorm:"not null;default:0" json:"outstanding_balance"`
	Balance            int64          `gorm:"not null;default:0" json:"balance"`
	LastNotifiedAt     *time.Time     `json:"last_notified_at,omitempty"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Customer) TableName() string { return "customers" }
