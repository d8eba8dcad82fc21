package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

const (
	ActionBillCreate       = "bill.create"
	ActionBillDelete       = "bill.delete"
	ActionBillPeriodDelete = "bill.period_delete"
	ActionBillBulkCreate   = "bill.bulk_create"
	ActionBillImport       = "bill.import"
	ActionPaymentRecord    = "payment.record"
	ActionPaymentAllocate  = "payment.allocate"
	ActionCustomerCreate   = "customer.create"
	ActionCustomerUpdate   = "customer.update"
	ActionCustomerDelete   = "customer.delete"
	ActionSettingsUpdate   = "settings.update"
	ActionBalanceReconcile = "balance.reconcile"
	ActionAuthzDenied      = "authorization.denied"
)

// Target types name the record an audit entry is about.
const (
	TargetCustomer      = "customer"
	TargetBill          = "bill"
	TargetPeriod        = "period"
	TargetPayment       = "payment"
	TargetSettings      = "settings"
	TargetAuthorization = "authorization"
	TargetUnknown       = "unknown"
)

// Service records audit entries. When db is a transaction handle the entry
// commits or rolls back with the audited change; nil uses the service pool.
type Service interface {
	AuditLog(ctx context.Context, db *gorm.DB, action string, targetType string, targetID *string, metadata map[string]any) error
}

var ErrInvalidAction = errors.New("invalid_action")
