package retention

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shohag/linegemini/internal/config"
)

type Purger interface {
	PurgeInvocations(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper periodically deletes invocation records older than the TTL.
type Sweeper struct {
	store    Purger
	ttl      time.Duration
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewSweeper(cfg config.RetentionConfig, store Purger, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		ttl:      cfg.InvocationTTL,
		interval: cfg.SweepInterval,
		log:      log.With().Str("component", "retention").Logger(),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Enabled reports whether both the TTL and the interval are set.
func (s *Sweeper) Enabled() bool {
	return s.ttl > 0 && s.interval > 0
}

func (s *Sweeper) Start(ctx context.Context) {
	if !s.Enabled() {
		s.log.Info().Msg("retention sweeper disabled")
		return
	}

	s.log.Info().Dur("ttl", s.ttl).Dur("interval", s.interval).Msg("starting retention sweeper")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

func (s *Sweeper) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// Sweep runs one purge pass and returns the number of deleted records.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.ttl)
	n, err := s.store.PurgeInvocations(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("purged", n).Time("before", cutoff).Msg("purged old invocations")
	}
	return n, nil
}

func (s *Sweeper) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error().Err(err).Msg("retention sweep failed")
			}
		}
	}
}
