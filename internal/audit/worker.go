package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/praxlog/logbook-backend/internal/config"
	"github.com/praxlog/logbook-backend/internal/logging"
)

// Worker consumes audit tasks: record inserts and scheduled retention
// pruning.
type Worker struct {
	server    *asynq.Server
	store     Writer
	retention time.Duration
}

func NewWorker(cfg *config.RedisConfig, store Writer, retention time.Duration) *Worker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logging.Error("process task failed", "type", task.Type(), "payload", string(task.Payload()), "error", err)
			}),
		},
	)

	return &Worker{server: server, store: store, retention: retention}
}

func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAuditRecord, w.HandleAuditRecord)
	mux.HandleFunc(TypeAuditPrune, w.HandleAuditPrune)

	return w.server.Start(mux)
}

func (w *Worker) Close() {
	if w.server != nil {
		w.server.Shutdown()
	}
}

func (w *Worker) HandleAuditRecord(ctx context.Context, t *asynq.Task) error {
	var ev Event
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.store.InsertAudit(ctx, ev.record()); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (w *Worker) HandleAuditPrune(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().Add(-w.retention)
	pruned, err := w.store.PruneAuditBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune audit records: %w", err)
	}
	logging.Info("pruned audit records", "count", pruned, "cutoff", cutoff)
	return nil
}

// NewScheduler returns an asynq scheduler that enqueues the daily retention
// prune. The worker command runs it alongside the server.
func NewScheduler(cfg *config.RedisConfig) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		&asynq.SchedulerOpts{},
	)

	if _, err := scheduler.Register("@daily", asynq.NewTask(TypeAuditPrune, nil)); err != nil {
		return nil, fmt.Errorf("register prune schedule: %w", err)
	}
	return scheduler, nil
}
