package service_test

import (
	"testing"

	auditdomain "github.com/smallbiznis/tirta/internal/audit/domain"
	"github.com/smallbiznis/tirta/internal/authorization"
	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	"github.com/smallbiznis/tirta/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func importRow(number int64, name string, start, end int64) billdomain.ImportRow {
	usage := end - start
	return billdomain.ImportRow{
		CustomerNumber: number,
		Name:           name,
		MeterStart:     start,
		MeterEnd:       end,
		Usage:          usage,
		Tier1Usage:     usage,
		AdminFee:       3000,
		Tier1Amount:    usage * 1800,
		TotalAmount:    3000 + usage*1800,
	}
}

func TestImport_RowsCommitIndependently(t *testing.T) {
	stack := testsupport.NewStack(t)
	existing := stack.Customer(t, "Putri")

	broken := importRow(8, "Rudi", 0, 10)
	broken.TotalAmount = 1

	result, err := stack.Bills.Import(testsupport.AdminContext(), billdomain.ImportRequest{
		Period: "2025-01",
		Rows: []billdomain.ImportRow{
			importRow(existing.CustomerNumber, "Putri", 0, 10),
			importRow(7, "Wati", 50, 62),
			broken,
			importRow(7, "Wati", 62, 70),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Rejected, 2)

	assert.Equal(t, 3, result.Rejected[0].Row)
	assert.Equal(t, "invalid_import_row", result.Rejected[0].Reason)
	assert.Equal(t, 4, result.Rejected[1].Row)
	assert.Equal(t, "reading_exists", result.Rejected[1].Reason)

	imported, err := stack.CustomerRepo.FindByNumber(testsupport.AdminContext(), stack.DB, 7)
	require.NoError(t, err)
	require.NotNil(t, imported)
	assert.Equal(t, "Wati", imported.Name)
	assert.Equal(t, int64(3000+12*1800), imported.TotalBill)

	assert.Equal(t, int64(21000), stack.Reload(t, existing.ID).TotalBill)
	assert.Equal(t, int64(2), testsupport.Count(t, stack.DB, "bills"))
}

func TestImport_Guards(t *testing.T) {
	stack := testsupport.NewStack(t)

	_, err := stack.Bills.Import(testsupport.AdminContext(), billdomain.ImportRequest{Period: "2025-01"})
	assert.ErrorIs(t, err, billdomain.ErrEmptyImport)

	_, err = stack.Bills.Import(testsupport.OperatorContext(), billdomain.ImportRequest{
		Period: "2025-01",
		Rows:   []billdomain.ImportRow{importRow(1, "A", 0, 1)},
	})
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestImport_LogsAuditFailureAndKeepsRows(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	stack := testsupport.NewStack(t,
		testsupport.WithLogger(zap.New(core)),
		testsupport.WithAuditFailure(auditdomain.ActionBillImport),
	)

	result, err := stack.Bills.Import(testsupport.AdminContext(), billdomain.ImportRequest{
		Period: "2025-01",
		Rows:   []billdomain.ImportRow{importRow(21, "Sari", 0, 10)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, int64(1), testsupport.Count(t, stack.DB, "bills"))

	failed := logs.FilterMessage("audit log failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, auditdomain.ActionBillImport, failed[0].ContextMap()["action"])
}
