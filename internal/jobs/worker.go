package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/smallbiznis/tirta/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const cronOff = "off"

// Worker consumes the default queue and, when a cron is configured, schedules
// the nightly reconciliation.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	log       *zap.Logger
}

func NewWorker(cfg config.Config, log *zap.Logger, handlers *Handlers) (*Worker, error) {
	if !cfg.Redis.Enabled() {
		return nil, errors.New("jobs worker requires REDIS_ADDR")
	}
	log = log.Named("jobs.worker")

	concurrency := cfg.Jobs.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	redisOpt := RedisOpt(cfg)
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueDefault: 1},
		Logger:      log.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.Warn("task failed",
				zap.String("task", task.Type()),
				zap.Int("retry", retried),
				zap.Int("max_retry", maxRetry),
				zap.Error(err),
			)
		}),
	})

	mux := asynq.NewServeMux()
	handlers.Register(mux)

	w := &Worker{server: server, mux: mux, log: log}

	spec := strings.TrimSpace(cfg.Jobs.ReconcileCron)
	if spec != "" && !strings.EqualFold(spec, cronOff) {
		task, err := NewReconcileTask(ReconcilePayload{RequestedBy: "scheduler"})
		if err != nil {
			return nil, err
		}
		w.scheduler = asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
		if _, err := w.scheduler.Register(spec, task); err != nil {
			return nil, err
		}
		log.Info("reconciliation scheduled", zap.String("cron", spec))
	}
	return w, nil
}

func (w *Worker) Start() error {
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	return w.server.Start(w.mux)
}

func (w *Worker) Stop() {
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	w.server.Shutdown()
}

func RegisterWorker(lc fx.Lifecycle, w *Worker) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			w.log.Info("jobs worker starting")
			return w.Start()
		},
		OnStop: func(context.Context) error {
			w.Stop()
			return nil
		},
	})
}
