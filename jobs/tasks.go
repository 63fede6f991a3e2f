package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/reduc/agenda/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueAudit carries audit trace writes.
	QueueAudit = "audit"
	// TaskAuditWrite persists one audit entry.
	TaskAuditWrite = "audit:write"
	// TaskDirectoryProbe checks that the directory service account can bind.
	TaskDirectoryProbe = "directory:probe"
)

// NewAuditWriteTask constructs an Asynq task for entry.
func NewAuditWriteTask(entry audit.Entry) (*asynq.Task, error) {
	data, err := json.Marshal(audit.Prepare(entry))
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditWrite, data, asynq.Queue(QueueAudit), asynq.MaxRetry(5)), nil
}

// NewDirectoryProbeTask constructs a probe task.
func NewDirectoryProbeTask() *asynq.Task {
	return asynq.NewTask(TaskDirectoryProbe, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(0))
}
