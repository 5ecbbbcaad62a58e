package sweep

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/logger"
)

// Scheduler runs the sweep on a fixed interval until the context is
// cancelled. Conflicts from another instance holding the lease are normal
// and logged at info level only.
type Scheduler struct {
	job      *Job
	interval time.Duration
	logg     *logger.Logger
}

// NewScheduler wraps the job with an interval loop.
func NewScheduler(job *Job, interval time.Duration, logg *logger.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("job required")
	}
	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Scheduler{job: job, interval: interval, logg: logg}, nil
}

// Start blocks, sweeping once immediately and then on every tick, until ctx
// is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "sweep scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	result, err := s.job.Run(ctx)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeConflict) {
			s.logg.Info(ctx, "sweep skipped, another instance holds the lease")
			return
		}
		s.logg.Error(ctx, "expiry sweep failed", err)
		return
	}
	ctx = s.logg.WithField(ctx, "updated", result.Updated)
	s.logg.Info(ctx, "expiry sweep completed")
}
