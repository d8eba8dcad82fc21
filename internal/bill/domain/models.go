package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tirta/internal/period"
	"github.com/smallbiznis/tirta/internal/tariff"
)

type PaymentStatus string

const (
	StatusUnpaid  PaymentStatus = "unpaid"
	StatusPartial PaymentStatus = "partial"
	StatusPaid    PaymentStatus = "paid"
)

// Source labels how a bill came to exist.
type Source string

const (
	SourceManual Source = "manual"
	SourceBulk   Source = "bulk"
	SourceImport Source = "import"
)

type MeterReading struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID snowflake.ID `gorm:"not null;uniqueIndex:ux_meter_readings_customer_period" json:"customer_id"`
	Period     string       `gorm:"not null;uniqueIndex:ux_meter_readings_customer_period" json:"period"`
	MeterStart int64        `gorm:"not null" json:"meter_start"`
	MeterEnd   int64        `gorm:"not null" json:"meter_end"`
	Usage      int64        `gorm:"column:usage_m3;not null" json:"usage"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (MeterReading) TableName() string { return "meter_readings" }

// Bill is the obligation created from one meter reading. CustomerID and
// Period are copied from the reading so FIFO ordering needs no join.
type Bill struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	CustomerID     snowflake.ID  `gorm:"not null;index" json:"customer_id"`
	MeterReadingID snowflake.ID  `gorm:"not null;uniqueIndex" json:"meter_reading_id"`
	Period         string        `gorm:"not null;index" json:"period"`
	TotalAmount    int64         `gorm:"not null" json:"total_amount"`
	AmountPaid     int64         `gorm:"not null;default:0" json:"amount_paid"`
	Penalty        int64         `gorm:"not null;default:0" json:"penalty"`
	Remaining      int64         `gorm:"not null" json:"remaining"`
	Change         int64         `gorm:"column:change_amount;not null;default:0" json:"change"`
	PaymentStatus  PaymentStatus `gorm:"not null" json:"payment_status"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`
}

func (Bill) TableName() string { return "bills" }

type BillItem struct {
	ID     snowflake.ID    `gorm:"primaryKey" json:"id"`
	BillID snowflake.ID    `gorm:"not null;index" json:"bill_id"`
	Type   tariff.ItemType `gorm:"not null" json:"type"`
	Usage  int64           `gorm:"column:usage_m3;not null" json:"usage"`
	Rate   int64           `gorm:"not null" json:"rate"`
	Amount int64           `gorm:"not null" json:"amount"`
}

func (BillItem) TableName() string { return "bill_items" }

// NewBill opens a bill for total with nothing paid.
func NewBill(id, customerID, readingID snowflake.ID, p period.Period, total int64, now time.Time) Bill {
	b := Bill{
		ID:             id,
		CustomerID:     customerID,
		MeterReadingID: readingID,
		Period:         p.String(),
		TotalAmount:    total,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	b.derive(now)
	return b
}

// Due is what settles the bill: the tariff total plus accumulated penalty.
func (b Bill) Due() int64 {
	return b.TotalAmount + b.Penalty
}

func (b Bill) IsPaid() bool {
	return b.PaymentStatus == StatusPaid
}

// Apply adds penalty to the bill and then pays up to amount towards it. It
// returns the portion absorbed by the bill and the excess that became change.
// Every payment path goes through Apply so remaining and status are derived
// the same way everywhere.
func (b *Bill) Apply(amount, penalty int64, now time.Time) (applied, change int64) {
	if penalty > 0 {
		b.Penalty += penalty
	}
	owed := b.Due() - b.AmountPaid
	if owed < 0 {
		owed = 0
	}
	applied = amount
	if applied > owed {
		applied = owed
	}
	if applied < 0 {
		applied = 0
	}
	change = amount - applied

	b.AmountPaid += applied
	b.Change += change
	b.UpdatedAt = now
	b.derive(now)
	return applied, change
}

func (b *Bill) derive(now time.Time) {
	b.Remaining = b.Due() - b.AmountPaid
	if b.Remaining < 0 {
		b.Remaining = 0
	}
	switch {
	case b.Remaining == 0:
		b.PaymentStatus = StatusPaid
		if b.PaidAt == nil {
			paidAt := now
			b.PaidAt = &paidAt
		}
	case b.AmountPaid > 0:
		b.PaymentStatus = StatusPartial
	default:
		b.PaymentStatus = StatusUnpaid
	}
}

// OverduePenalty suggests penaltyPerMonth for every started month past the
// period's due date. Settled bills carry no suggestion.
func (b Bill) OverduePenalty(now time.Time, penaltyPerMonth int64) int64 {
	if b.IsPaid() || penaltyPerMonth <= 0 {
		return 0
	}
	return int64(period.Period(b.Period).MonthsOverdue(now)) * penaltyPerMonth
}

// Detail is a bill with its reading and frozen items.
type Detail struct {
	Bill
	Reading MeterReading `json:"reading"`
	Items   []BillItem   `json:"items"`
}

// PeriodSummary is the per-period dashboard row.
type PeriodSummary struct {
	Period      string `json:"period"`
	Bills       int64  `json:"bills"`
	UnpaidBills int64  `json:"unpaid_bills"`
	TotalAmount int64  `json:"total_amount"`
	AmountPaid  int64  `json:"amount_paid"`
}
