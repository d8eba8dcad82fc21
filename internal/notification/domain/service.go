package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/tirta/internal/apperror"
	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	customerdomain "github.com/smallbiznis/tirta/internal/customer/domain"
)

// NoticeBill is an unsettled bill as shown in a reminder.
type NoticeBill struct {
	billdomain.Bill
	PeriodLabel      string `json:"period_label"`
	SuggestedPenalty int64  `json:"suggested_penalty"`
}

// Notice is the read model handed to the delivery collaborator, which owns
// formatting and sending.
type Notice struct {
	Customer       customerdomain.Customer `json:"customer"`
	UnpaidBills    []NoticeBill            `json:"unpaid_bills"`
	TotalDue       int64                   `json:"total_due"`
	LastNotifiedAt *time.Time              `json:"last_notified_at,omitempty"`
}

type Service interface {
	Notice(ctx context.Context, customerID string) (Notice, error)
	// Acknowledge records that the customer was notified and returns the
	// stored timestamp.
	Acknowledge(ctx context.Context, customerID string) (time.Time, error)
}

var (
	ErrInvalidCustomerID = apperror.Validation("invalid_customer_id", "customer_id")
	ErrCustomerNotFound  = apperror.NotFound("customer_not_found")
)
