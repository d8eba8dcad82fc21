package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/smallbiznis/tirta/internal/apperror"
	"github.com/smallbiznis/tirta/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrQueueDisabled = apperror.Conflict("queue_unavailable")
	ErrAlreadyQueued = apperror.Conflict("job_already_queued")
)

// Enqueuer hands long-running work to the worker.
type Enqueuer interface {
	EnqueueGeneratePeriod(ctx context.Context, payload GeneratePeriodPayload) (string, error)
	EnqueueReconcile(ctx context.Context, payload ReconcilePayload) (string, error)
}

type Client struct {
	client  *asynq.Client
	log     *zap.Logger
	timeout asynq.Option
}

func RedisOpt(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// NewClient returns nil when redis is not configured; every method of a nil
// client reports ErrQueueDisabled.
func NewClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *Client {
	if !cfg.Redis.Enabled() {
		return nil
	}
	c := newClient(asynq.NewClient(RedisOpt(cfg)), cfg, log)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
	return c
}

func newClient(client *asynq.Client, cfg config.Config, log *zap.Logger) *Client {
	c := &Client{client: client, log: log.Named("jobs.client")}
	if cfg.Jobs.TaskTimeout > 0 {
		c.timeout = asynq.Timeout(cfg.Jobs.TaskTimeout)
	}
	return c
}

func (c *Client) EnqueueGeneratePeriod(ctx context.Context, payload GeneratePeriodPayload) (string, error) {
	if c == nil {
		return "", ErrQueueDisabled
	}
	task, err := NewGeneratePeriodTask(payload)
	if err != nil {
		return "", err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) EnqueueReconcile(ctx context.Context, payload ReconcilePayload) (string, error) {
	if c == nil {
		return "", ErrQueueDisabled
	}
	task, err := NewReconcileTask(payload)
	if err != nil {
		return "", err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task) (string, error) {
	var opts []asynq.Option
	if c.timeout != nil {
		opts = append(opts, c.timeout)
	}
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
			return "", ErrAlreadyQueued
		}
		return "", err
	}
	c.log.Info("task enqueued", zap.String("task", task.Type()), zap.String("task_id", info.ID))
	return info.ID, nil
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
