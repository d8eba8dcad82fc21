package domain

import (
	"context"

	"github.com/smallbiznis/tirta/internal/apperror"
)

type GenerateRequest struct {
	Period string `json:"-"`
	// Usage optionally supplies metered usage per customer number.
	Usage map[int64]int64 `json:"usage,omitempty"`
}

type CreatedBill struct {
	CustomerID     string `json:"customer_id"`
	CustomerNumber int64  `json:"customer_number"`
	BillID         string `json:"bill_id"`
	Usage          int64  `json:"usage"`
	TotalAmount    int64  `json:"total_amount"`
}

type Skip struct {
	CustomerID     string `json:"customer_id"`
	CustomerNumber int64  `json:"customer_number"`
	Name           string `json:"name"`
	Reason         string `json:"reason"`
	Error          string `json:"error,omitempty"`
}

// GenerateResult is the fold of every customer's outcome for one run.
type GenerateResult struct {
	Period    string        `json:"period"`
	Created   int           `json:"created"`
	Bills     []CreatedBill `json:"bills"`
	Skipped   []Skip        `json:"skipped"`
	Cancelled bool          `json:"cancelled"`
}

const (
	ReasonBillExists        = "bill_exists"
	ReasonNoPreviousReading = "no_previous_reading"
	ReasonUsageNotSupplied  = "usage_not_supplied"
	ReasonCancelled         = "cancelled"
	ReasonDeadlineExceeded  = "deadline_exceeded"
)

type Service interface {
	GenerateForPeriod(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

var (
	ErrUsageNotSupplied = apperror.Validation(ReasonUsageNotSupplied, "usage")
	ErrInvalidUsage     = apperror.Validation("invalid_usage", "usage")
)
