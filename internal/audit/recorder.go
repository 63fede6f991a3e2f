package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reduc/agenda/internal/ids"
)

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Async writes entries in the background. Failures are logged and never
// reach the caller.
type Async struct {
	next    Recorder
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps next so that Record returns immediately.
func NewAsync(next Recorder, logger *slog.Logger, timeout time.Duration) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Async{next: next, logger: logger, timeout: timeout}
}

// Record schedules the write and returns nil.
func (a *Async) Record(ctx context.Context, entry Entry) error {
	entry = Prepare(entry)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		if err := a.next.Record(wctx, entry); err != nil {
			a.logger.Warn("audit write failed",
				slog.String("action", string(entry.Action)),
				slog.String("entity_id", entry.EntityID),
				slog.Any("error", err),
			)
		}
	}()
	return nil
}

// Wait blocks until in-flight writes finish. Used on shutdown and in tests.
func (a *Async) Wait() {
	a.wg.Wait()
}

// Prepare fills defaulted fields on entry.
func Prepare(entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	if entry.Entity == "" {
		entry.Entity = EntityAuth
	}
	if entry.Role == "" {
		entry.Role = RoleSystem
	}
	if entry.EntityID == "" {
		entry.EntityID = UnknownEntityID
	}
	return entry
}
