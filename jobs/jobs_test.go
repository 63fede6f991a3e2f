package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reduc/agenda/internal/audit"
	jobmetrics "github.com/reduc/agenda/internal/jobs"
)

type captureQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *captureQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Queue: QueueAudit}, nil
}

type memoryStore struct {
	entries []audit.Entry
	err     error
}

func (m *memoryStore) Record(_ context.Context, entry audit.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func TestQueueRecorderRoundTripsThroughWorker(t *testing.T) {
	queue := &captureQueue{}
	recorder := NewQueueRecorder(queue)

	err := recorder.Record(context.Background(), audit.Entry{
		ActorID:  "user-1",
		Action:   audit.ActionLogin,
		EntityID: "user-1",
		ClientIP: "10.0.0.1",
	})
	require.NoError(t, err)
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, TaskAuditWrite, queue.tasks[0].Type())

	store := &memoryStore{}
	job := NewAuditWriteJob(store, jobmetrics.NewMetrics(prometheus.NewRegistry()), nil)
	require.NoError(t, job.Handle(context.Background(), queue.tasks[0]))

	require.Len(t, store.entries, 1)
	got := store.entries[0]
	assert.Equal(t, audit.ActionLogin, got.Action)
	assert.Equal(t, audit.EntityAuth, got.Entity)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.At.IsZero())
}

func TestQueueRecorderSurfacesEnqueueErrors(t *testing.T) {
	recorder := NewQueueRecorder(&captureQueue{err: errors.New("redis down")})
	assert.Error(t, recorder.Record(context.Background(), audit.Entry{Action: audit.ActionLogout}))
}

func TestAuditWriteJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewAuditWriteJob(&memoryStore{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskAuditWrite, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAuditWriteJobRetriesStoreErrors(t *testing.T) {
	body, err := json.Marshal(audit.Prepare(audit.Entry{Action: audit.ActionLogout}))
	require.NoError(t, err)
	job := NewAuditWriteJob(&memoryStore{err: errors.New("pg down")}, nil, nil)

	err = job.Handle(context.Background(), asynq.NewTask(TaskAuditWrite, body))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

type stubProber struct{ err error }

func (p stubProber) Probe(context.Context) error { return p.err }

func TestDirectoryProbeJob(t *testing.T) {
	assert.NoError(t, NewDirectoryProbeJob(stubProber{}, nil, nil).Handle(context.Background(), NewDirectoryProbeTask()))

	boom := errors.New("unreachable")
	assert.ErrorIs(t, NewDirectoryProbeJob(stubProber{err: boom}, nil, nil).Handle(context.Background(), NewDirectoryProbeTask()), boom)

	cron := DirectoryProbeCron("@every 5m")
	assert.Equal(t, TaskDirectoryProbe, cron.Task.Type())
}

func TestHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"queues":[{"queue":"audit","pending":0,"failed":0},{"queue":"default","pending":0,"failed":0}]}`, rec.Body.String())
}
