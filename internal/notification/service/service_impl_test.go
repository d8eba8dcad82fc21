package service_test

import (
	"context"
	"testing"
	"time"

	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	notificationdomain "github.com/smallbiznis/tirta/internal/notification/domain"
	"github.com/smallbiznis/tirta/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotice_ListsUnsettledBillsOldestFirst(t *testing.T) {
	stack := testsupport.NewStack(t)
	customer := stack.Customer(t, "Lestari")
	paid := stack.Bill(t, customer.ID, "2024-12", 0, 5)
	stack.Bill(t, customer.ID, "2025-01", 0, 15)
	stack.Bill(t, customer.ID, "2025-02", 0, 25)

	_, err := stack.Bills.RecordPayment(testsupport.OperatorContext(), billdomain.RecordPaymentRequest{
		BillID: paid.ID.String(),
		Amount: paid.TotalAmount,
	})
	require.NoError(t, err)

	notice, err := stack.Notification.Notice(context.Background(), customer.ID.String())
	require.NoError(t, err)
	require.Len(t, notice.UnpaidBills, 2)
	assert.Equal(t, "Januari 2025", notice.UnpaidBills[0].PeriodLabel)
	assert.Equal(t, "Februari 2025", notice.UnpaidBills[1].PeriodLabel)
	assert.Equal(t, int64(42000), notice.TotalDue)
	assert.Equal(t, int64(10000), notice.UnpaidBills[0].SuggestedPenalty)
	assert.Equal(t, int64(5000), notice.UnpaidBills[1].SuggestedPenalty)
	assert.Nil(t, notice.LastNotifiedAt)
}

func TestAcknowledge_StampsLastNotified(t *testing.T) {
	stack := testsupport.NewStack(t)
	customer := stack.Customer(t, "Mega")
	stack.Clock.Advance(2 * time.Hour)

	at, err := stack.Notification.Acknowledge(context.Background(), customer.ID.String())
	require.NoError(t, err)
	assert.True(t, at.Equal(testsupport.Epoch.Add(2*time.Hour)))

	notice, err := stack.Notification.Notice(context.Background(), customer.ID.String())
	require.NoError(t, err)
	require.NotNil(t, notice.LastNotifiedAt)
	assert.True(t, notice.LastNotifiedAt.Equal(at))
	assert.Empty(t, notice.UnpaidBills)

	_, err = stack.Notification.Acknowledge(context.Background(), stack.Node.Generate().String())
	assert.ErrorIs(t, err, notificationdomain.ErrCustomerNotFound)

	_, err = stack.Notification.Notice(context.Background(), "nope")
	assert.ErrorIs(t, err, notificationdomain.ErrInvalidCustomerID)
}
