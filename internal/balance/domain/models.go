package domain

import "github.com/bwmarrin/snowflake"

// Totals are the cached aggregates stored on a customer row.
type Totals struct {
	TotalBill          int64 `json:"total_bill"`
	TotalPaid          int64 `json:"total_paid"`
	OutstandingBalance int64 `json:"outstanding_balance"`
	Balance            int64 `json:"balance"`
}

// NewTotals derives the outstanding balance from billed and paid sums.
func NewTotals(totalBill, totalPaid, balance int64) Totals {
	outstanding := totalBill - totalPaid
	if outstanding < 0 {
		outstanding = 0
	}
	return Totals{
		TotalBill:          totalBill,
		TotalPaid:          totalPaid,
		OutstandingBalance: outstanding,
		Balance:            balance,
	}
}

type CustomerTotals struct {
	CustomerID     snowflake.ID `gorm:"column:id"`
	CustomerNumber int64        `gorm:"column:customer_number"`
	Name           string       `gorm:"column:name"`
	Totals
}

type Correction struct {
	CustomerID     string `json:"customer_id"`
	CustomerNumber int64  `json:"customer_number"`
	Name           string `json:"name"`
	Before         Totals `json:"before"`
	After          Totals `json:"after"`
}

type ReconcileResult struct {
	Checked    int          `json:"checked"`
	FixedCount int          `json:"fixed_count"`
	Results    []Correction `json:"results"`
}
