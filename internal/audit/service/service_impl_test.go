package service_test

import (
	"context"
	"errors"
	"testing"

	auditdomain "github.com/smallbiznis/tirta/internal/audit/domain"
	"github.com/smallbiznis/tirta/internal/auditcontext"
	"github.com/smallbiznis/tirta/internal/clock"
	customerdomain "github.com/smallbiznis/tirta/internal/customer/domain"
	"github.com/smallbiznis/tirta/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAuditLog_RecordsActorAndRequest(t *testing.T) {
	db := testsupport.OpenDB(t)
	svc := testsupport.Audit(db, testsupport.Node(t), clock.NewFakeClock(testsupport.Epoch))

	ctx := testsupport.OperatorContext()
	ctx = auditcontext.WithRequestID(ctx, "req-1")
	ctx = auditcontext.WithIPAddress(ctx, "10.0.0.7")
	ctx = auditcontext.WithUserAgent(ctx, "kasir/1.0")

	target := "42"
	require.NoError(t, svc.AuditLog(ctx, nil, auditdomain.ActionCustomerUpdate, "customer", &target, map[string]any{
		"phone": "081234567890",
		"name":  "Lia",
	}))

	var row auditdomain.AuditLog
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, "user", row.ActorType)
	require.NotNil(t, row.ActorID)
	assert.Equal(t, "2", *row.ActorID)
	assert.Equal(t, auditdomain.ActionCustomerUpdate, row.Action)
	require.NotNil(t, row.TargetID)
	assert.Equal(t, "42", *row.TargetID)
	assert.Equal(t, "****890", row.Metadata["phone"])
	assert.Equal(t, "Lia", row.Metadata["name"])
	assert.Equal(t, "req-1", row.Metadata["request_id"])
	assert.Equal(t, "operator", row.Metadata["actor_role"])
	assert.True(t, row.CreatedAt.Equal(testsupport.Epoch))
	require.NotNil(t, row.IPAddress)
	assert.Equal(t, "10.0.0.7", *row.IPAddress)
	require.NotNil(t, row.UserAgent)
	assert.Equal(t, "kasir/1.0", *row.UserAgent)
}

func TestAuditLog_DefaultsToSystemActor(t *testing.T) {
	db := testsupport.OpenDB(t)
	svc := testsupport.Audit(db, testsupport.Node(t), clock.NewFakeClock(testsupport.Epoch))

	require.NoError(t, svc.AuditLog(context.Background(), nil, auditdomain.ActionBalanceReconcile, "", nil, nil))

	var row auditdomain.AuditLog
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, "system", row.ActorType)
	assert.Nil(t, row.ActorID)
	assert.Equal(t, auditdomain.TargetUnknown, row.TargetType)
	assert.Equal(t, "system", row.Metadata["actor_role"])

	err := svc.AuditLog(context.Background(), nil, "  ", "bill", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestAuditLog_RollsBackWithTransaction(t *testing.T) {
	db := testsupport.OpenDB(t)
	svc := testsupport.Audit(db, testsupport.Node(t), clock.NewFakeClock(testsupport.Epoch))

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.AuditLog(testsupport.AdminContext(), tx, auditdomain.ActionBillDelete, "bill", nil, nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), testsupport.Count(t, db, "audit_logs"))
}

func TestAuditTrail_FollowsServiceMutations(t *testing.T) {
	stack := testsupport.NewStack(t)

	_, err := stack.Customers.Create(testsupport.AdminContext(), customerdomain.CreateCustomerRequest{
		Name:  "Maya",
		Phone: "0812000111",
	})
	require.NoError(t, err)

	var rows []auditdomain.AuditLog
	require.NoError(t, stack.DB.Where("action = ?", auditdomain.ActionCustomerCreate).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "customer", rows[0].TargetType)
	assert.Equal(t, "****111", rows[0].Metadata["phone"])
}
