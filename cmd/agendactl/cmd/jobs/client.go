package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	agendajobs "github.com/reduc/agenda/jobs"
)

// QueueInspector is the subset of *asynq.Inspector used for stats.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Manager wraps manual management helpers for Asynq jobs.
type Manager struct {
	queue     agendajobs.Enqueuer
	inspector QueueInspector
	closers   []func() error
}

// NewManager initialises the helpers using the provided Redis address.
func NewManager(redisAddr string) *Manager {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client := asynq.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	return &Manager{
		queue:     client,
		inspector: inspector,
		closers:   []func() error{inspector.Close, client.Close},
	}
}

// Close releases underlying resources.
func (m *Manager) Close() error {
	var err error
	for _, fn := range m.closers {
		if closeErr := fn(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name.
func (m *Manager) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if m == nil || m.queue == nil {
		return nil, errors.New("jobs: client not configured")
	}
	var task *asynq.Task
	switch name {
	case agendajobs.TaskDirectoryProbe:
		task = agendajobs.NewDirectoryProbeTask()
	default:
		return nil, fmt.Errorf("jobs: unsupported job %s", name)
	}
	return m.queue.EnqueueContext(ctx, task, asynq.MaxRetry(3))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Failed    int
}

// InspectQueues reports metrics for every queue the worker consumes.
func (m *Manager) InspectQueues() ([]QueueStats, error) {
	if m == nil || m.inspector == nil {
		return nil, errors.New("jobs: inspector not configured")
	}
	queues := []string{agendajobs.QueueAudit, agendajobs.QueueDefault}
	out := make([]QueueStats, 0, len(queues))
	for _, name := range queues {
		info, err := m.inspector.GetQueueInfo(name)
		if errors.Is(err, asynq.ErrQueueNotFound) {
			out = append(out, QueueStats{Queue: name})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", name, err)
		}
		out = append(out, QueueStats{
			Queue:     name,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
			Failed:    info.Failed,
		})
	}
	return out, nil
}
