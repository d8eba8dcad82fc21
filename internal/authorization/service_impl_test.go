package authorization

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/smallbiznis/tirta/internal/apperror"
	"github.com/smallbiznis/tirta/internal/auditcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
	err     error
}

func (r *recordingAudit) AuditLog(_ context.Context, _ *gorm.DB, action string, _ string, _ *string, _ map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
	return r.err
}

func newTestService(t *testing.T) (Service, *recordingAudit) {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	audit := &recordingAudit{}
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer, AuditSvc: audit}), audit
}

func userCtx(id, role string) context.Context {
	return auditcontext.WithActor(context.Background(), auditcontext.Actor{
		Type: auditcontext.ActorTypeUser,
		ID:   id,
		Role: role,
	})
}

func TestAuthorize_MissingActor(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Authorize(context.Background(), ObjectBill, ActionBillDelete)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
}

func TestAuthorize_RoleGrants(t *testing.T) {
	svc, audit := newTestService(t)

	require.NoError(t, svc.Authorize(userCtx("1", RoleAdmin), ObjectBill, ActionBillDelete))
	require.NoError(t, svc.Authorize(userCtx("2", RoleOperator), ObjectPayment, ActionPaymentRecord))

	err := svc.Authorize(userCtx("2", RoleOperator), ObjectBill, ActionBillDelete)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, []string{"authorization.denied"}, audit.actions)

	sysCtx := auditcontext.WithActor(context.Background(), auditcontext.System)
	require.NoError(t, svc.Authorize(sysCtx, ObjectBill, ActionBillBulkCreate))
	assert.ErrorIs(t, svc.Authorize(sysCtx, ObjectSettings, ActionSettingsUpdate), ErrForbidden)
}

func TestAuthorize_RoleChangeReplacesGrouping(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.Authorize(userCtx("7", RoleAdmin), ObjectSettings, ActionSettingsUpdate))
	assert.ErrorIs(t, svc.Authorize(userCtx("7", RoleOperator), ObjectSettings, ActionSettingsUpdate), ErrForbidden)
}

func TestAuthorize_ConcurrentRolesForOneSubject(t *testing.T) {
	svc, _ := newTestService(t)

	const rounds = 40
	var wg sync.WaitGroup
	errs := make([]error, rounds)
	for i := 0; i < rounds; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			role := RoleAdmin
			if i%2 == 1 {
				role = RoleOperator
			}
			errs[i] = svc.Authorize(userCtx("11", role), ObjectBill, ActionBillDelete)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if i%2 == 0 {
			assert.NoError(t, err, "admin call %d", i)
		} else {
			assert.ErrorIs(t, err, ErrForbidden, "operator call %d", i)
		}
	}

	impl := svc.(*ServiceImpl)
	links, err := impl.enforcer.GetFilteredGroupingPolicy(0, auditcontext.Actor{Type: auditcontext.ActorTypeUser, ID: "11"}.Subject())
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestAuthorize_DeniedAuditFailureStillForbids(t *testing.T) {
	svc, audit := newTestService(t)
	audit.err = errors.New("audit store down")

	err := svc.Authorize(userCtx("12", RoleOperator), ObjectSettings, ActionSettingsUpdate)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, []string{"authorization.denied"}, audit.actions)
}

func TestAuthorize_UnknownRole(t *testing.T) {
	svc, _ := newTestService(t)
	assert.ErrorIs(t, svc.Authorize(userCtx("9", "viewer"), ObjectBill, ActionBillCreate), ErrForbidden)
}
