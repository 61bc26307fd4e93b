// Package cron runs the engine's periodic sweeps. Each job gets its own
// goroutine with a fixed initial delay and a full-interval sleep after each
// completed run, so a slow pass never overlaps the next one.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"dialogmotekandidat/internal/platform/leaderelection"
)

// Job is one periodic sweep.
type Job struct {
	// Name labels log lines and nothing else.
	Name string
	// Interval is the sleep between the end of one run and the start of the
	// next.
	Interval time.Duration
	// LeaderOnly gates the run on current leadership, polled every cycle.
	LeaderOnly bool
	// Run executes one pass. Errors are logged; the job keeps its schedule.
	Run func(ctx context.Context) error
}

// Runner drives a set of jobs until the context is cancelled. The in-flight
// pass finishes before Start returns.
type Runner struct {
	jobs         []Job
	leader       leaderelection.Oracle
	logger       *slog.Logger
	initialDelay time.Duration
}

func NewRunner(leader leaderelection.Oracle, initialDelay time.Duration, logger *slog.Logger, jobs ...Job) (*Runner, error) {
	if leader == nil {
		return nil, fmt.Errorf("leader oracle is required")
	}
	for _, job := range jobs {
		if job.Name == "" || job.Interval <= 0 || job.Run == nil {
			return nil, fmt.Errorf("job %q is incomplete", job.Name)
		}
	}
	return &Runner{jobs: jobs, leader: leader, logger: logger, initialDelay: initialDelay}, nil
}

// Start blocks until ctx is cancelled and every job goroutine has finished.
func (r *Runner) Start(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, job := range r.jobs {
		group.Go(func() error {
			r.loop(ctx, job)
			return nil
		})
	}
	return group.Wait()
}

func (r *Runner) loop(ctx context.Context, job Job) {
	if !sleep(ctx, r.initialDelay) {
		return
	}
	for {
		r.runOnce(ctx, job)
		if !sleep(ctx, job.Interval) {
			return
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, job Job) {
	if job.LeaderOnly {
		isLeader, err := r.leader.IsLeader(ctx)
		if err != nil {
			r.logger.Error("leader check failed", "job", job.Name, "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	started := time.Now()
	if err := job.Run(ctx); err != nil {
		r.logger.Error("job failed", "job", job.Name, "error", err)
		return
	}
	r.logger.Debug("job completed", "job", job.Name, "duration", time.Since(started))
}

// sleep waits d or until ctx is cancelled, reporting whether to continue.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
