package worker

import (
	"context"
	"log"
	"time"
)

// Sweeper runs the periodic reconciliation: expired holds stop blocking
// their seats and departed trips' unclaimed tickets become no-shows.
// Errors are logged and the run retried on the next tick; the sweep
// re-queries current state each time, so nothing is lost.
type Sweeper struct {
	sweepHolds   func(ctx context.Context) (int, error)
	markNoShows  func(ctx context.Context) (int, error)
	interval     time.Duration
	initialDelay time.Duration
}

const (
	defaultInterval     = 60 * time.Second
	defaultInitialDelay = 30 * time.Second
)

type SweeperOption func(*Sweeper)

func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithInitialDelay(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d >= 0 {
			s.initialDelay = d
		}
	}
}

func NewSweeper(sweepHolds, markNoShows func(ctx context.Context) (int, error), opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		sweepHolds:   sweepHolds,
		markNoShows:  markNoShows,
		interval:     defaultInterval,
		initialDelay: defaultInitialDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is canceled, ticking at the configured interval
// after the initial delay.
func (s *Sweeper) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.initialDelay):
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if expired, err := s.sweepHolds(ctx); err != nil {
		log.Printf("sweep expired holds error: %v", err)
	} else if expired > 0 {
		log.Printf("expired %d holds", expired)
	}

	if s.markNoShows == nil {
		return
	}
	if flipped, err := s.markNoShows(ctx); err != nil {
		log.Printf("mark no-shows error: %v", err)
	} else if flipped > 0 {
		log.Printf("marked %d tickets no-show", flipped)
	}
}
