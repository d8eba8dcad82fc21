package service_test

import (
	"testing"

	"github.com/smallbiznis/tirta/internal/apperror"
	"github.com/smallbiznis/tirta/internal/authorization"
	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	customerdomain "github.com/smallbiznis/tirta/internal/customer/domain"
	"github.com/smallbiznis/tirta/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_AssignsNextNumber(t *testing.T) {
	stack := testsupport.NewStack(t)
	ctx := testsupport.OperatorContext()

	first, err := stack.Customers.Create(ctx, customerdomain.CreateCustomerRequest{Name: "  Agus ", Phone: "08123456789"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.CustomerNumber)
	assert.Equal(t, "Agus", first.Name)

	explicit, err := stack.Customers.Create(ctx, customerdomain.CreateCustomerRequest{CustomerNumber: 40, Name: "Bayu"})
	require.NoError(t, err)
	assert.Equal(t, int64(40), explicit.CustomerNumber)

	next, err := stack.Customers.Create(ctx, customerdomain.CreateCustomerRequest{Name: "Citra"})
	require.NoError(t, err)
	assert.Equal(t, int64(41), next.CustomerNumber)

	_, err = stack.Customers.Create(ctx, customerdomain.CreateCustomerRequest{CustomerNumber: 40, Name: "Dodi"})
	assert.ErrorIs(t, err, customerdomain.ErrCustomerNumberTaken)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	_, err = stack.Customers.Create(ctx, customerdomain.CreateCustomerRequest{Name: "   "})
	assert.ErrorIs(t, err, customerdomain.ErrInvalidName)
}

func TestUpdate_ChangesOnlyGivenFields(t *testing.T) {
	stack := testsupport.NewStack(t)
	customer := stack.Customer(t, "Edi")

	phone := "0811"
	updated, err := stack.Customers.Update(testsupport.OperatorContext(), customer.ID.String(), customerdomain.UpdateCustomerRequest{
		Phone: &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, "Edi", updated.Name)
	assert.Equal(t, "0811", updated.Phone)

	blank := ""
	_, err = stack.Customers.Update(testsupport.OperatorContext(), customer.ID.String(), customerdomain.UpdateCustomerRequest{
		Name: &blank,
	})
	assert.ErrorIs(t, err, customerdomain.ErrInvalidName)

	_, err = stack.Customers.Update(testsupport.OperatorContext(), stack.Node.Generate().String(), customerdomain.UpdateCustomerRequest{
		Phone: &phone,
	})
	assert.ErrorIs(t, err, customerdomain.ErrNotFound)
}

func TestList_PaginatesByCustomerNumber(t *testing.T) {
	stack := testsupport.NewStack(t)
	for _, name := range []string{"Fani", "Gilang", "Hana", "Irma", "Fandi"} {
		stack.Customer(t, name)
	}
	ctx := testsupport.OperatorContext()

	page, err := stack.Customers.List(ctx, customerdomain.ListCustomerRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Customers, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(1), page.Customers[0].CustomerNumber)

	var numbers []int64
	token := ""
	for {
		page, err := stack.Customers.List(ctx, customerdomain.ListCustomerRequest{PageSize: 2, PageToken: token})
		require.NoError(t, err)
		for _, c := range page.Customers {
			numbers = append(numbers, c.CustomerNumber)
		}
		if !page.HasMore {
			break
		}
		token = page.NextPageToken
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, numbers)

	found, err := stack.Customers.List(ctx, customerdomain.ListCustomerRequest{Search: "fan"})
	require.NoError(t, err)
	require.Len(t, found.Customers, 2)
	assert.Equal(t, "Fani", found.Customers[0].Name)
	assert.Equal(t, "Fandi", found.Customers[1].Name)

	byNumber, err := stack.Customers.List(ctx, customerdomain.ListCustomerRequest{Search: "3"})
	require.NoError(t, err)
	require.Len(t, byNumber.Customers, 1)
	assert.Equal(t, "Hana", byNumber.Customers[0].Name)

	_, err = stack.Customers.List(ctx, customerdomain.ListCustomerRequest{PageToken: "%%%"})
	assert.ErrorIs(t, err, customerdomain.ErrInvalidPageToken)
}

func TestDelete_RemovesBillsKeepsPayments(t *testing.T) {
	stack := testsupport.NewStack(t)
	customer := stack.Customer(t, "Joni")
	bill := stack.Bill(t, customer.ID, "2025-01", 0, 10)
	_, err := stack.Bills.RecordPayment(testsupport.OperatorContext(), billdomain.RecordPaymentRequest{
		BillID: bill.ID.String(),
		Amount: 5000,
	})
	require.NoError(t, err)

	err = stack.Customers.Delete(testsupport.OperatorContext(), customer.ID.String())
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	require.NoError(t, stack.Customers.Delete(testsupport.AdminContext(), customer.ID.String()))

	_, err = stack.Customers.GetByID(testsupport.AdminContext(), customer.ID.String())
	assert.ErrorIs(t, err, customerdomain.ErrNotFound)

	assert.Equal(t, int64(0), testsupport.Count(t, stack.DB, "bills"))
	assert.Equal(t, int64(0), testsupport.Count(t, stack.DB, "meter_readings"))
	assert.Equal(t, int64(1), testsupport.Count(t, stack.DB, "payments"))

	list, err := stack.Customers.List(testsupport.AdminContext(), customerdomain.ListCustomerRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Customers)
}

func TestStatement_SuggestsOverduePenalty(t *testing.T) {
	stack := testsupport.NewStack(t)
	customer := stack.Customer(t, "Kiki")
	january := stack.Bill(t, customer.ID, "2025-01", 0, 10)
	stack.Bill(t, customer.ID, "2025-03", 0, 20)

	_, err := stack.Bills.RecordPayment(testsupport.OperatorContext(), billdomain.RecordPaymentRequest{
		BillID: january.ID.String(),
		Amount: 1000,
	})
	require.NoError(t, err)

	statement, err := stack.Customers.Statement(testsupport.OperatorContext(), customer.ID.String())
	require.NoError(t, err)
	require.Len(t, statement.Bills, 2)
	require.Len(t, statement.Payments, 1)

	// Newest first. The clock sits mid-March 2025: January fell due on
	// 1 February and has started two overdue months, March is not due yet.
	march, jan := statement.Bills[0], statement.Bills[1]
	assert.Equal(t, "Maret 2025", march.PeriodLabel)
	assert.Equal(t, int64(0), march.SuggestedPenalty)
	assert.Equal(t, "Januari 2025", jan.PeriodLabel)
	assert.Equal(t, int64(10), jan.Usage)
	assert.Equal(t, int64(10000), jan.SuggestedPenalty)
	assert.Equal(t, int64(20000), jan.Remaining)
	assert.Equal(t, "Pembayaran", statement.Payments[0].Description)
	assert.Equal(t, int64(42000), statement.Customer.TotalBill)
}
