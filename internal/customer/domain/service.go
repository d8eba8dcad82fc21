package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/tirta/internal/apperror"
	"github.com/smallbiznis/tirta/pkg/db/pagination"
)

type CreateCustomerRequest struct {
	CustomerNumber int64  `json:"customer_number"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type ListCustomerRequest struct {
	Search    string
	PageToken string
	PageSize  int
}

type ListCustomerFilter struct {
	Search string
	After  int64
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

// StatementBill is a bill line on a customer statement.
type StatementBill struct {
	ID               string     `json:"id"`
	Period           string     `json:"period"`
	PeriodLabel      string     `json:"period_label"`
	Usage            int64      `json:"usage"`
	TotalAmount      int64      `json:"total_amount"`
	Penalty          int64      `json:"penalty"`
	AmountPaid       int64      `json:"amount_paid"`
	Remaining        int64      `json:"remaining"`
	PaymentStatus    string     `json:"payment_status"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	SuggestedPenalty int64      `json:"suggested_penalty"`
}

type StatementPayment struct {
	ID             string    `json:"id"`
	Reference      string    `json:"reference"`
	Amount         int64     `json:"amount"`
	SavedToBalance int64     `json:"saved_to_balance"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}

type Statement struct {
	Customer Customer           `json:"customer"`
	Bills    []StatementBill    `json:"bills"`
	Payments []StatementPayment `json:"payments"`
}

type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (Customer, error)
	Update(ctx context.Context, id string, req UpdateCustomerRequest) (Customer, error)
	GetByID(ctx context.Context, id string) (Customer, error)
	List(ctx context.Context, req ListCustomerRequest) (ListCustomerResponse, error)
	Delete(ctx context.Context, id string) error
	Statement(ctx context.Context, id string) (Statement, error)
}

var (
	ErrInvalidID           = apperror.Validation("invalid_id", "id")
	ErrInvalidName         = apperror.Validation("invalid_name", "name")
	ErrInvalidNumber       = apperror.Validation("invalid_customer_number", "customer_number")
	ErrInvalidPageToken    = apperror.Validation("invalid_page_token", "page_token")
	ErrNotFound            = apperror.NotFound("customer_not_found")
	ErrCustomerNumberTaken = apperror.Conflict("customer_number_taken")
)
