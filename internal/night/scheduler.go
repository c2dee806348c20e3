package night

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"bus-departures-backend/internal/timeutil"
)

// Scheduler drives the daily snapshot jobs: one save inside the evening
// window, one cleanup of the previous day's key. The save/delete endpoints
// remain available for externally scheduled invocations; the scheduler just
// guarantees at most one run per day from within the process.
type Scheduler struct {
	svc      *Service
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	lastSaveDay   string
	lastDeleteDay string
}

// NewScheduler creates a scheduler checking the clock at the given interval.
func NewScheduler(svc *Service, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Scheduler{
		svc:      svc,
		interval: interval,
		logger:   logger.With().Str("component", "night-scheduler").Logger(),
		now:      time.Now,
	}
}

// Run loops until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("night scheduler started")

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("night scheduler shutting down")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	day := now.In(timeutil.Paris()).Format("2006-01-02")
	hour := timeutil.ParisHour(now)

	if InSaveWindow(now) && s.lastSaveDay != day {
		if err := s.saveWithRetry(ctx); err != nil {
			s.logger.Error().Err(err).Msg("nightly snapshot save failed")
		} else {
			s.lastSaveDay = day
		}
	}

	// Clean up yesterday's snapshot in the morning, once the night rides it
	// covered are over.
	if hour >= 7 && hour < 21 && s.lastDeleteDay != day {
		if _, err := s.svc.DeleteNightData(ctx); err != nil {
			s.logger.Error().Err(err).Msg("nightly snapshot cleanup failed")
		} else {
			s.lastDeleteDay = day
		}
	}
}

// saveWithRetry retries transient failures with exponential backoff while
// the save window is still open.
func (s *Scheduler) saveWithRetry(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Second
	bo.MaxInterval = 2 * time.Minute
	bo.MaxElapsedTime = 15 * time.Minute

	operation := func() error {
		_, err := s.svc.SaveNightData(ctx)
		if errors.Is(err, ErrOutsideSaveWindow) {
			// The window closed mid-retry; give up until tomorrow.
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}
