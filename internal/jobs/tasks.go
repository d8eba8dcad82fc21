package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	QueueDefault = "default"

	TaskGeneratePeriod = "billing:generate_period"
	TaskReconcile      = "balance:reconcile"
)

const (
	generateMaxRetry  = 3
	reconcileMaxRetry = 1
	// uniqueWindow keeps a second enqueue of the same period from piling up
	// behind a run that is still queued.
	uniqueWindow = 10 * time.Minute
)

type GeneratePeriodPayload struct {
	Period string          `json:"period"`
	Usage  map[int64]int64 `json:"usage,omitempty"`
	// RequestedBy is the actor that enqueued the run, kept for the audit trail.
	RequestedBy string `json:"requested_by,omitempty"`
}

type ReconcilePayload struct {
	RequestedBy string `json:"requested_by,omitempty"`
}

func NewGeneratePeriodTask(payload GeneratePeriodPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGeneratePeriod, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(generateMaxRetry),
		asynq.Unique(uniqueWindow),
	), nil
}

func NewReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcile, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(reconcileMaxRetry),
	), nil
}
