package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/smallbiznis/tirta/internal/apperror"
	"github.com/smallbiznis/tirta/internal/auditcontext"
	balancedomain "github.com/smallbiznis/tirta/internal/balance/domain"
	bulkdomain "github.com/smallbiznis/tirta/internal/bulkbilling/domain"
	"github.com/smallbiznis/tirta/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type HandlerParams struct {
	fx.In

	Log     *zap.Logger
	Bulk    bulkdomain.Service
	Balance balancedomain.Service
}

// Handlers runs queued work as the system actor.
type Handlers struct {
	log     *zap.Logger
	bulk    bulkdomain.Service
	balance balancedomain.Service
}

func NewHandlers(p HandlerParams) *Handlers {
	return &Handlers{
		log:     p.Log.Named("jobs"),
		bulk:    p.Bulk,
		balance: p.Balance,
	}
}

func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskGeneratePeriod, h.HandleGeneratePeriod)
	mux.HandleFunc(TaskReconcile, h.HandleReconcile)
}

func (h *Handlers) HandleGeneratePeriod(ctx context.Context, t *asynq.Task) error {
	var payload GeneratePeriodPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}

	ctx = systemContext(ctx)
	log := logger.WithContext(ctx, h.log).With(
		zap.String("task", t.Type()),
		zap.String("period", payload.Period),
		zap.String("requested_by", payload.RequestedBy),
	)

	result, err := h.bulk.GenerateForPeriod(ctx, bulkdomain.GenerateRequest{
		Period: payload.Period,
		Usage:  payload.Usage,
	})
	if err != nil {
		log.Warn("bulk generation task failed", zap.Error(err))
		return retryable(err)
	}
	log.Info("bulk generation task done",
		zap.Int("created", result.Created),
		zap.Int("skipped", len(result.Skipped)),
		zap.Bool("cancelled", result.Cancelled),
	)
	if result.Cancelled {
		// Committed bills stay; the retry picks up the remaining customers.
		return fmt.Errorf("bulk generation for %s interrupted: %w", payload.Period, ctx.Err())
	}
	return nil
}

func (h *Handlers) HandleReconcile(ctx context.Context, t *asynq.Task) error {
	var payload ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
		}
	}

	ctx = systemContext(ctx)
	log := logger.WithContext(ctx, h.log).With(
		zap.String("task", t.Type()),
		zap.String("requested_by", payload.RequestedBy),
	)

	result, err := h.balance.ReconcileAll(ctx)
	if err != nil {
		log.Warn("reconciliation task failed", zap.Error(err))
		return retryable(err)
	}
	log.Info("reconciliation task done",
		zap.Int("checked", result.Checked),
		zap.Int("fixed", result.FixedCount),
	)
	return nil
}

func systemContext(ctx context.Context) context.Context {
	ctx = auditcontext.WithActor(ctx, auditcontext.System)
	if id, ok := asynq.GetTaskID(ctx); ok {
		ctx = auditcontext.WithRequestID(ctx, id)
	}
	return ctx
}

// retryable lets asynq retry only failures a later attempt can fix: lock
// contention and infrastructure errors. Rejected input never succeeds.
func retryable(err error) error {
	switch apperror.KindOf(err) {
	case apperror.KindValidation, apperror.KindNotFound, apperror.KindUnauthorized:
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return err
}
