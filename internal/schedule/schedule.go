// Package schedule runs periodic jobs on cron expressions with slog
// integration. It backs the optional scheduled re-apply of migrations.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is a unit of scheduled work.
type JobFunc func(ctx context.Context) error

// cronLogger adapts the cron logger interface to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]any{slog.Any("error", err)}, keysAndValues...)
	l.log.Error(msg, args...)
}

// Scheduler manages periodic jobs. Overlapping runs of the same job are
// skipped, so a slow job never stacks behind itself.
type Scheduler struct {
	cron   *cron.Cron
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler whose jobs inherit parentCtx.
func New(parentCtx context.Context, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{log: log.With("component", "cron")}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: log})),
		),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers job under the given cron expression. Examples:
// "@hourly", "@every 5m", "0 3 * * *".
func (s *Scheduler) AddJob(expr, name string, job JobFunc) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(expr, func() {
		start := time.Now()
		if err := job(s.ctx); err != nil {
			s.log.Error("job failed", "name", name, "error", err, "duration", time.Since(start))
			return
		}
		s.log.Debug("job completed", "name", name, "duration", time.Since(start))
	})
	if err != nil {
		s.log.Error("failed to add job", "expr", expr, "name", name, "error", err)
		return 0, err
	}
	s.log.Info("job added", "expr", expr, "name", name, "id", id)
	return id, nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels the job context and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
