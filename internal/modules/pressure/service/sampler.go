package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JorgeS15/AirLab/internal/modules/pressure/types"
)

type Poller interface {
	Poll() (types.Snapshot, error)
}

// PollerFunc adapts a function to Poller.
type PollerFunc func() (types.Snapshot, error)

func (f PollerFunc) Poll() (types.Snapshot, error) { return f() }

// Sampled records the outcome of every Poll on src. Readers call Latest, so
// only the sampler adds samples to the filter windows and the window spans a
// fixed number of sampler ticks however many clients are reading.
type Sampled struct {
	src Poller

	mu   sync.RWMutex
	snap types.Snapshot
	err  error
}

func NewSampled(src Poller) *Sampled {
	return &Sampled{src: src, err: fmt.Errorf("%w: no sample taken yet", ErrNoData)}
}

func (s *Sampled) Poll() (types.Snapshot, error) {
	snap, err := s.src.Poll()
	s.mu.Lock()
	s.snap, s.err = snap, err
	s.mu.Unlock()
	return snap, err
}

// Latest returns the result of the most recent Poll.
func (s *Sampled) Latest() (types.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.err
}

// RunSampler polls at a fixed interval until ctx is done, for deployments with
// no dashboard driving the cadence. Cycles without data are skipped; the
// transition into and out of that state is logged once.
func RunSampler(ctx context.Context, p Poller, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	starved := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, err := p.Poll()
			switch {
			case err == nil:
				if starved {
					slog.Info("analog source readable again")
					starved = false
				}
			case errors.Is(err, ErrNoData):
				if !starved {
					slog.Warn("analog source unavailable, skipping cycles", "error", err)
					starved = true
				}
			default:
				slog.Error("poll failed", "error", err)
			}
		}
	}
}
