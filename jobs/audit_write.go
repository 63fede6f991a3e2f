package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/reduc/agenda/internal/audit"
	jobmetrics "github.com/reduc/agenda/internal/jobs"
)

// Enqueuer is the subset of *asynq.Client used to submit tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueRecorder implements audit.Recorder by enqueuing the entry for the worker.
type QueueRecorder struct {
	queue Enqueuer
}

// NewQueueRecorder builds a QueueRecorder.
func NewQueueRecorder(queue Enqueuer) *QueueRecorder {
	return &QueueRecorder{queue: queue}
}

// Record enqueues entry.
func (r *QueueRecorder) Record(ctx context.Context, entry audit.Entry) error {
	task, err := NewAuditWriteTask(entry)
	if err != nil {
		return fmt.Errorf("jobs: build audit task: %w", err)
	}
	if _, err := r.queue.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("jobs: enqueue audit task: %w", err)
	}
	return nil
}

// AuditWriteJob drains the audit queue into the store.
type AuditWriteJob struct {
	store   audit.Recorder
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewAuditWriteJob constructs the handler.
func NewAuditWriteJob(store audit.Recorder, metrics *jobmetrics.Metrics, logger *slog.Logger) *AuditWriteJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditWriteJob{store: store, metrics: metrics, logger: logger}
}

// Handle processes TaskAuditWrite tasks.
func (j *AuditWriteJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskAuditWrite)
	var entry audit.Entry
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		j.logger.Error("decode audit task", slog.Any("error", err))
		_ = tracker.End(err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err := j.store.Record(ctx, entry); err != nil {
		return tracker.End(fmt.Errorf("jobs: write audit %s: %w", entry.ID, err))
	}
	return tracker.End(nil)
}
