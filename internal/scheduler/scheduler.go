// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "eventease/internal/log"
)

// Scheduler wraps a cron runner. Jobs never overlap with themselves and a
// panicking job is logged instead of crashing the process.
type Scheduler struct {
	c   *cron.Cron
	ctx context.Context
}

// New returns a stopped Scheduler evaluating schedules in loc. ctx is
// passed to every job run.
func New(ctx context.Context, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{}
	return &Scheduler{
		c: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx: ctx,
	}
}

// Add registers job under a standard five-field spec or descriptor such as
// "@every 5m".
func (s *Scheduler) Add(name, spec string, job func(ctx context.Context)) error {
	_, err := s.c.AddFunc(spec, func() {
		start := time.Now()
		job(s.ctx)
		appLog.Debug("scheduled job finished", "job", name, "took", time.Since(start).String())
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	appLog.Info("scheduled job registered", "job", name, "spec", spec)
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.c.Entries())
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop halts scheduling and waits for running jobs or ctx, whichever ends
// first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		appLog.Warn("scheduler stop timed out")
	}
}

// cronLogger adapts the cron logging interface to the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
