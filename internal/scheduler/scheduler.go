package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

// Runner performs one ingestion run.
type Runner interface {
	Run(ctx context.Context) (*model.RunSummary, error)
}

// RunnerFunc adapts a function to Runner. The watch command builds a fresh
// pipeline per run through one.
type RunnerFunc func(ctx context.Context) (*model.RunSummary, error)

func (f RunnerFunc) Run(ctx context.Context) (*model.RunSummary, error) { return f(ctx) }

// Pruner drops persisted fingerprints older than a retention window.
type Pruner interface {
	Cleanup(olderThan time.Duration) (int64, error)
}

// Scheduler owns the watch loop: one run immediately, then one run per
// interval after the previous run finished. Runs never overlap.
type Scheduler struct {
	runner    Runner
	interval  time.Duration
	pruner    Pruner
	retention time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a scheduler that runs runner at the given interval.
func NewScheduler(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// WithPruner makes the scheduler prune the store after every run.
func (s *Scheduler) WithPruner(p Pruner, retention time.Duration) *Scheduler {
	s.pruner = p
	s.retention = retention
	return s
}

// Run starts the loop. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "interval", s.interval.String())

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.interval):
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	summary, err := s.runner.Run(ctx)
	if err != nil {
		var rf *model.RunFailure
		if errors.As(err, &rf) {
			s.logger.Error("run failed", "sources", rf.Sources)
		} else {
			s.logger.Error("run failed", "error", err)
		}
	}
	if summary != nil {
		s.logger.Info("run complete", "run_id", summary.RunID, "written", summary.Written, "next_run", time.Now().Add(s.interval).Format(time.TimeOnly))
	}

	if s.pruner != nil && s.retention > 0 {
		n, err := s.pruner.Cleanup(s.retention)
		if err != nil {
			s.logger.Warn("pruning store failed", "error", err)
		} else if n > 0 {
			s.logger.Info("pruned store", "removed", n, "older_than", s.retention)
		}
	}
}
