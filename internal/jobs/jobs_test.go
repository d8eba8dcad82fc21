package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/smallbiznis/tirta/internal/auditcontext"
	balancedomain "github.com/smallbiznis/tirta/internal/balance/domain"
	bulkdomain "github.com/smallbiznis/tirta/internal/bulkbilling/domain"
	"github.com/smallbiznis/tirta/internal/lock"
	"github.com/smallbiznis/tirta/internal/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type bulkMock struct {
	mock.Mock
}

func (m *bulkMock) GenerateForPeriod(ctx context.Context, req bulkdomain.GenerateRequest) (bulkdomain.GenerateResult, error) {
	actor, _ := auditcontext.ActorFromContext(ctx)
	args := m.Called(actor.Type, req)
	return args.Get(0).(bulkdomain.GenerateResult), args.Error(1)
}

type balanceMock struct {
	mock.Mock
}

func (m *balanceMock) Refresh(context.Context, *gorm.DB, snowflake.ID) (balancedomain.Totals, error) {
	return balancedomain.Totals{}, nil
}

func (m *balanceMock) ReconcileAll(ctx context.Context) (balancedomain.ReconcileResult, error) {
	actor, _ := auditcontext.ActorFromContext(ctx)
	args := m.Called(actor.Type)
	return args.Get(0).(balancedomain.ReconcileResult), args.Error(1)
}

func newHandlers(bulk *bulkMock, balance *balanceMock) *Handlers {
	return NewHandlers(HandlerParams{Log: zap.NewNop(), Bulk: bulk, Balance: balance})
}

func TestHandleGeneratePeriod_RunsAsSystem(t *testing.T) {
	bulk := &bulkMock{}
	req := bulkdomain.GenerateRequest{Period: "2025-03", Usage: map[int64]int64{7: 12}}
	bulk.On("GenerateForPeriod", auditcontext.ActorTypeSystem, req).
		Return(bulkdomain.GenerateResult{Period: "2025-03", Created: 1}, nil).Once()

	task, err := NewGeneratePeriodTask(GeneratePeriodPayload{Period: "2025-03", Usage: req.Usage, RequestedBy: "1"})
	require.NoError(t, err)
	assert.Equal(t, TaskGeneratePeriod, task.Type())

	require.NoError(t, newHandlers(bulk, &balanceMock{}).HandleGeneratePeriod(context.Background(), task))
	bulk.AssertExpectations(t)
}

func TestHandleGeneratePeriod_SkipsRetryForRejectedInput(t *testing.T) {
	bulk := &bulkMock{}
	bulk.On("GenerateForPeriod", auditcontext.ActorTypeSystem, mock.Anything).
		Return(bulkdomain.GenerateResult{}, period.ErrInvalidPeriod).Once()

	task, err := NewGeneratePeriodTask(GeneratePeriodPayload{Period: "bad"})
	require.NoError(t, err)

	err = newHandlers(bulk, &balanceMock{}).HandleGeneratePeriod(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.ErrorIs(t, err, period.ErrInvalidPeriod)
}

func TestHandleGeneratePeriod_RetriesBusyPeriod(t *testing.T) {
	bulk := &bulkMock{}
	bulk.On("GenerateForPeriod", auditcontext.ActorTypeSystem, mock.Anything).
		Return(bulkdomain.GenerateResult{}, lock.ErrBusy).Once()

	task, err := NewGeneratePeriodTask(GeneratePeriodPayload{Period: "2025-03"})
	require.NoError(t, err)

	err = newHandlers(bulk, &balanceMock{}).HandleGeneratePeriod(context.Background(), task)
	assert.ErrorIs(t, err, lock.ErrBusy)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleGeneratePeriod_RetriesCancelledRun(t *testing.T) {
	bulk := &bulkMock{}
	bulk.On("GenerateForPeriod", auditcontext.ActorTypeSystem, mock.Anything).
		Return(bulkdomain.GenerateResult{Cancelled: true}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	task, err := NewGeneratePeriodTask(GeneratePeriodPayload{Period: "2025-03"})
	require.NoError(t, err)

	err = newHandlers(bulk, &balanceMock{}).HandleGeneratePeriod(ctx, task)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandleGeneratePeriod_RejectsMalformedPayload(t *testing.T) {
	task := asynq.NewTask(TaskGeneratePeriod, []byte("{"))
	err := newHandlers(&bulkMock{}, &balanceMock{}).HandleGeneratePeriod(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleReconcile(t *testing.T) {
	balance := &balanceMock{}
	balance.On("ReconcileAll", auditcontext.ActorTypeSystem).
		Return(balancedomain.ReconcileResult{Checked: 3, FixedCount: 1}, nil).Once()

	task, err := NewReconcileTask(ReconcilePayload{RequestedBy: "scheduler"})
	require.NoError(t, err)

	var payload ReconcilePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "scheduler", payload.RequestedBy)

	require.NoError(t, newHandlers(&bulkMock{}, balance).HandleReconcile(context.Background(), task))
	balance.AssertExpectations(t)

	// An empty payload is what a hand-enqueued task looks like.
	balance.On("ReconcileAll", auditcontext.ActorTypeSystem).
		Return(balancedomain.ReconcileResult{}, errors.New("db down")).Once()
	err = newHandlers(&bulkMock{}, balance).HandleReconcile(context.Background(), asynq.NewTask(TaskReconcile, nil))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestNilClientReportsQueueDisabled(t *testing.T) {
	var client *Client
	_, err := client.EnqueueGeneratePeriod(context.Background(), GeneratePeriodPayload{Period: "2025-03"})
	assert.ErrorIs(t, err, ErrQueueDisabled)
	_, err = client.EnqueueReconcile(context.Background(), ReconcilePayload{})
	assert.ErrorIs(t, err, ErrQueueDisabled)
	assert.NoError(t, client.Close())
}
