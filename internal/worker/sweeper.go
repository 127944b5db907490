package worker

import (
	"context"
	"time"

	"salonbook/internal/metrics"

	"github.com/rs/zerolog"
)

// Purger removes hold rows that have already expired.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Sweepable is an in-process store with windows to drop, such as the memory rate limiter.
type Sweepable interface {
	Sweep() int
}

// HoldSweeper deletes expired holds on an interval. Readers already treat them as
// absent, so the sweep only keeps the table small.
type HoldSweeper struct {
	purger      Purger
	extras      []Sweepable
	interval    time.Duration
	retryPolicy RetryPolicy
	failures    int
	logger      *zerolog.Logger
}

func NewHoldSweeper(purger Purger, interval time.Duration, retry RetryPolicy, logger *zerolog.Logger) *HoldSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = interval
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &HoldSweeper{
		purger:      purger,
		interval:    interval,
		retryPolicy: retry,
		logger:      logger,
	}
}

// Also registers additional stores swept on every successful pass.
func (s *HoldSweeper) Also(extras ...Sweepable) *HoldSweeper {
	s.extras = append(s.extras, extras...)
	return s
}

func (s *HoldSweeper) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("hold sweeper started")
	defer s.logger.Info().Msg("hold sweeper stopped")

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			timer.Reset(s.next(ctx))
		}
	}
}

// next runs one pass and returns the delay until the following one.
func (s *HoldSweeper) next(ctx context.Context) time.Duration {
	if _, err := s.RunOnce(ctx); err != nil {
		s.failures++
		event := s.logger.Warn()
		if s.retryPolicy.Exhausted(s.failures) {
			event = s.logger.Error()
		}
		delay := s.retryPolicy.NextDelay(s.failures)
		event.Err(err).Int("attempt", s.failures).Dur("retry_in", delay).Msg("hold sweep failed")
		return delay
	}
	s.failures = 0
	return s.interval
}

// RunOnce performs a single sweep.
func (s *HoldSweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	metrics.AddPurged(n)

	swept := 0
	for _, extra := range s.extras {
		swept += extra.Sweep()
	}

	if n > 0 || swept > 0 {
		s.logger.Debug().Int64("holds", n).Int("rate_windows", swept).Msg("expired entries removed")
	}
	return n, nil
}
