package domain

import (
	"context"

	"github.com/smallbiznis/tirta/internal/apperror"
)

type CreateBillRequest struct {
	CustomerID string `json:"customer_id"`
	Period     string `json:"period"`
	MeterEnd   int64  `json:"meter_end"`
	MeterStart *int64 `json:"meter_start,omitempty"`
	Source     Source `json:"-"`
}

type RecordPaymentRequest struct {
	BillID  string `json:"-"`
	Amount  int64  `json:"amount"`
	Penalty int64  `json:"penalty"`
}

type PaymentResult struct {
	BillID    string        `json:"bill_id"`
	Reference string        `json:"reference"`
	Status    PaymentStatus `json:"status"`
	Remaining int64         `json:"remaining"`
	Change    int64         `json:"change"`
}

// ImportRow is one spreadsheet row parsed upstream.
type ImportRow struct {
	CustomerNumber int64  `json:"customer_number" validate:"gt=0"`
	Name           string `json:"name" validate:"required,max=200"`
	Phone          string `json:"phone" validate:"omitempty,max=32"`
	MeterStart     int64  `json:"meter_start" validate:"gte=0"`
	MeterEnd       int64  `json:"meter_end" validate:"gte=0"`
	Usage          int64  `json:"usage" validate:"gte=0"`
	Tier1Usage     int64  `json:"tier1_usage" validate:"gte=0"`
	Tier2Usage     int64  `json:"tier2_usage" validate:"gte=0"`
	AdminFee       int64  `json:"admin_fee" validate:"gte=0"`
	Tier1Amount    int64  `json:"tier1_amount" validate:"gte=0"`
	Tier2Amount    int64  `json:"tier2_amount" validate:"gte=0"`
	TotalAmount    int64  `json:"total_amount" validate:"gte=0"`
}

type ImportRequest struct {
	Period string      `json:"-"`
	Rows   []ImportRow `json:"rows"`
}

type ImportRejection struct {
	Row            int    `json:"row"`
	CustomerNumber int64  `json:"customer_number"`
	Reason         string `json:"reason"`
	Message        string `json:"message,omitempty"`
}

type ImportResult struct {
	Imported int               `json:"imported"`
	Rejected []ImportRejection `json:"rejected"`
}

type Service interface {
	CreateBill(ctx context.Context, req CreateBillRequest) (Detail, error)
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (PaymentResult, error)
	DeleteBill(ctx context.Context, billID string) error
	DeleteByPeriod(ctx context.Context, period string) (int64, error)
	Get(ctx context.Context, billID string) (Detail, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Bill, error)
	ListUnpaid(ctx context.Context, customerID string) ([]Bill, error)
	Summaries(ctx context.Context, limit int) ([]PeriodSummary, error)
	Import(ctx context.Context, req ImportRequest) (ImportResult, error)
}

var (
	ErrInvalidID         = apperror.Validation("invalid_id", "id")
	ErrInvalidCustomerID = apperror.Validation("invalid_customer_id", "customer_id")
	ErrInvalidMeterEnd   = apperror.Validation("invalid_meter_end", "meter_end")
	ErrInvalidMeterStart = apperror.Validation("invalid_meter_start", "meter_start")
	ErrMissingMeterStart = apperror.Validation("missing_meter_start", "meter_start")
	ErrInvalidAmount     = apperror.Validation("invalid_amount", "amount")
	ErrInvalidPenalty    = apperror.Validation("invalid_penalty", "penalty")
	ErrInvalidImportRow  = apperror.Validation("invalid_import_row", "rows")
	ErrEmptyImport       = apperror.Validation("empty_import", "rows")
	ErrNotFound          = apperror.NotFound("bill_not_found")
	ErrCustomerNotFound  = apperror.NotFound("customer_not_found")
	ErrPeriodNotFound    = apperror.NotFound("period_not_found")
	ErrReadingExists     = apperror.Conflict("reading_exists")
	ErrAlreadyPaid       = apperror.Conflict("bill_already_paid")
)
