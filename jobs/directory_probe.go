package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/reduc/agenda/internal/jobs"
)

// Prober checks directory reachability.
type Prober interface {
	Probe(ctx context.Context) error
}

// DirectoryProbeJob binds with the service account on a schedule so an
// unreachable directory shows up before users try to log in.
type DirectoryProbeJob struct {
	prober  Prober
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewDirectoryProbeJob constructs the handler.
func NewDirectoryProbeJob(prober Prober, metrics *jobmetrics.Metrics, logger *slog.Logger) *DirectoryProbeJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryProbeJob{prober: prober, metrics: metrics, logger: logger}
}

// Handle processes TaskDirectoryProbe tasks.
func (j *DirectoryProbeJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := j.metrics.Track(TaskDirectoryProbe)
	err := j.prober.Probe(ctx)
	if err != nil {
		j.logger.Error("directory probe failed", slog.Any("error", err))
	} else {
		j.logger.Debug("directory probe ok")
	}
	return tracker.End(err)
}

// DirectoryProbeCron schedules the probe.
func DirectoryProbeCron(spec string) CronRegistration {
	return CronRegistration{Spec: spec, Task: NewDirectoryProbeTask()}
}
