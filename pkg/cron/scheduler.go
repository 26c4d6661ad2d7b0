// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper fails documents stuck in processing so they can be retried.
type Sweeper interface {
	SweepStuck(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron       *cron.Cron
	sweeper    Sweeper
	stuckAfter time.Duration
	schedule   string
	logger     *slog.Logger
}

// NewScheduler creates a new job scheduler. schedule is a standard 5-field
// cron expression; stuckAfter is how long a document may sit in processing
// before the sweep reclaims it.
func NewScheduler(sweeper Sweeper, schedule string, stuckAfter time.Duration, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:       c,
		sweeper:    sweeper,
		stuckAfter: stuckAfter,
		schedule:   schedule,
		logger:     logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.sweepStuckDocuments)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the stuck-document sweep (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.sweepStuckDocuments()
}

// sweepStuckDocuments reclaims documents abandoned mid-processing, typically
// after a crash or deploy killed the worker that held them.
func (s *Scheduler) sweepStuckDocuments() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := s.sweeper.SweepStuck(ctx, s.stuckAfter)
	if err != nil {
		s.logger.Error("stuck document sweep failed", slog.Any("error", err))
		return
	}

	if n > 0 {
		s.logger.Info("stuck document sweep completed", slog.Int64("failed", n))
	}
}
