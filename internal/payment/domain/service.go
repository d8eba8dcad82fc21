package domain

import (
	"context"

	"github.com/smallbiznis/tirta/internal/apperror"
)

type AllocateRequest struct {
	CustomerID    string `json:"-"`
	Amount        int64  `json:"amount"`
	SaveToBalance int64  `json:"save_to_balance"`
}

// BillUpdate reports one bill touched by an allocation.
type BillUpdate struct {
	BillID    string `json:"bill_id"`
	Period    string `json:"period"`
	Applied   int64  `json:"applied"`
	Remaining int64  `json:"remaining"`
	Status    string `json:"status"`
}

type AllocationResult struct {
	PaymentID      string       `json:"payment_id"`
	Reference      string       `json:"reference"`
	BillsUpdated   []BillUpdate `json:"bills_updated"`
	Change         int64        `json:"change"`
	SavedToBalance int64        `json:"saved_to_balance"`
	CashChange     int64        `json:"cash_change"`
	Description    string       `json:"description"`
}

type Service interface {
	Allocate(ctx context.Context, req AllocateRequest) (AllocationResult, error)
}

var (
	ErrInvalidCustomerID    = apperror.Validation("invalid_customer_id", "customer_id")
	ErrInvalidAmount        = apperror.Validation("invalid_amount", "amount")
	ErrInvalidSaveToBalance = apperror.Validation("invalid_save_to_balance", "save_to_balance")
	ErrCustomerNotFound     = apperror.NotFound("customer_not_found")
)
