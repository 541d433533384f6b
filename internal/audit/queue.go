package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/praxlog/logbook-backend/internal/config"
	"github.com/praxlog/logbook-backend/internal/logging"
)

const (
	TypeAuditRecord = "audit:record"
	TypeAuditPrune  = "audit:prune"
)

type TaskQueue struct {
	client *asynq.Client
}

func NewQueue(cfg *config.RedisConfig) (*TaskQueue, error) {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Activate and test the connection
	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis queue: %w", err)
	}

	logging.Info("Connected to Redis task queue")

	return &TaskQueue{client: client}, nil
}

func (q *TaskQueue) Enqueue(taskType string, data interface{}) (*asynq.TaskInfo, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return q.client.Enqueue(asynq.NewTask(taskType, payload))
}

func (q *TaskQueue) Close() error {
	return q.client.Close()
}

// QueueRecorder enqueues audit events for the worker. When the queue is
// unreachable it degrades to a direct best-effort insert so denial records
// are not lost with the broker.
type QueueRecorder struct {
	queue *TaskQueue
	store Writer
}

func NewQueueRecorder(queue *TaskQueue, store Writer) *QueueRecorder {
	return &QueueRecorder{queue: queue, store: store}
}

func (r *QueueRecorder) Record(ctx context.Context, ev Event) {
	if _, err := r.queue.Enqueue(TypeAuditRecord, ev); err == nil {
		return
	} else {
		logging.Warn("audit enqueue failed, writing directly", "action", ev.Action, "error", err)
	}

	if err := r.store.InsertAudit(ctx, ev.record()); err != nil {
		logging.Error("audit write failed", "action", ev.Action, "error", err)
	}
}

// DirectRecorder writes events straight to the store. Used by the worker
// command and in tests where no queue is running.
type DirectRecorder struct {
	store Writer
}

func NewDirectRecorder(store Writer) *DirectRecorder {
	return &DirectRecorder{store: store}
}

func (r *DirectRecorder) Record(ctx context.Context, ev Event) {
	if err := r.store.InsertAudit(ctx, ev.record()); err != nil {
		logging.Error("audit write failed", "action", ev.Action, "error", err)
	}
}
