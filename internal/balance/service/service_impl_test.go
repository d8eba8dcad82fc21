package service_test

import (
	"context"
	"testing"

	auditdomain "github.com/smallbiznis/tirta/internal/audit/domain"
	"github.com/smallbiznis/tirta/internal/auditcontext"
	"github.com/smallbiznis/tirta/internal/authorization"
	paymentdomain "github.com/smallbiznis/tirta/internal/payment/domain"
	"github.com/smallbiznis/tirta/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestReconcileAll_RepairsDriftOnce(t *testing.T) {
	stack := testsupport.NewStack(t)
	drifted := stack.Customer(t, "Wawan")
	clean := stack.Customer(t, "Yuni")
	stack.Bill(t, drifted.ID, "2025-01", 0, 10)
	stack.Bill(t, clean.ID, "2025-01", 0, 10)

	require.NoError(t, stack.DB.Exec(
		`UPDATE customers SET total_bill = 1, total_paid = 99, outstanding_balance = 0 WHERE id = ?`,
		drifted.ID,
	).Error)

	ctx := auditcontext.WithActor(context.Background(), auditcontext.System)
	result, err := stack.Balance.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 1, result.FixedCount)
	require.Len(t, result.Results, 1)

	correction := result.Results[0]
	assert.Equal(t, drifted.ID.String(), correction.CustomerID)
	assert.Equal(t, int64(1), correction.Before.TotalBill)
	assert.Equal(t, int64(21000), correction.After.TotalBill)
	assert.Equal(t, int64(0), correction.After.TotalPaid)
	assert.Equal(t, int64(21000), correction.After.OutstandingBalance)

	again, err := stack.Balance.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Checked)
	assert.Equal(t, 0, again.FixedCount)
	assert.Empty(t, again.Results)
}

func TestReconcileAll_ReadsLegacyBalanceDescriptions(t *testing.T) {
	stack := testsupport.NewStack(t)
	customer := stack.Customer(t, "Zaki")

	// Rows written before saved_to_balance existed only carry the amount in
	// their description.
	legacy := paymentdomain.Payment{
		ID:          stack.Node.Generate(),
		Reference:   paymentdomain.NewReference(),
		CustomerID:  customer.ID,
		Amount:      50000,
		Description: "Lunas: Januari 2025 (+Rp 2.500 ke saldo)",
		CreatedAt:   testsupport.Epoch,
	}
	require.NoError(t, stack.PaymentRepo.Insert(context.Background(), stack.DB, &legacy))

	result, err := stack.Balance.ReconcileAll(testsupport.AdminContext())
	require.NoError(t, err)
	assert.Equal(t, 1, result.FixedCount)
	assert.Equal(t, int64(2500), stack.Reload(t, customer.ID).Balance)
}

func TestReconcileAll_RequiresCapability(t *testing.T) {
	stack := testsupport.NewStack(t)

	_, err := stack.Balance.ReconcileAll(testsupport.OperatorContext())
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	_, err = stack.Balance.ReconcileAll(context.Background())
	assert.ErrorIs(t, err, authorization.ErrUnauthenticated)
}

func TestReconcileAll_LogsAuditFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	stack := testsupport.NewStack(t,
		testsupport.WithLogger(zap.New(core)),
		testsupport.WithAuditFailure(auditdomain.ActionBalanceReconcile),
	)
	customer := stack.Customer(t, "Agus")
	stack.Bill(t, customer.ID, "2025-01", 0, 10)

	result, err := stack.Balance.ReconcileAll(testsupport.AdminContext())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)

	failed := logs.FilterMessage("audit log failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, auditdomain.ActionBalanceReconcile, failed[0].ContextMap()["action"])
	assert.Equal(t, testsupport.ErrAuditUnavailable.Error(), failed[0].ContextMap()["error"])
}
