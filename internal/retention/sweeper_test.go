package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shohag/linegemini/internal/config"
)

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	n       int64
	err     error
}

func (f *fakePurger) PurgeInvocations(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, before)
	return f.n, f.err
}

func (f *fakePurger) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestSweep_Cutoff(t *testing.T) {
	store := &fakePurger{n: 3}
	s := NewSweeper(config.RetentionConfig{InvocationTTL: 24 * time.Hour, SweepInterval: time.Hour}, store, zerolog.Nop())
	fixed := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), n)
	require.Len(t, store.cutoffs, 1)
	assert.Equal(t, fixed.Add(-24*time.Hour), store.cutoffs[0])
}

func TestSweep_Error(t *testing.T) {
	store := &fakePurger{err: errors.New("locked")}
	s := NewSweeper(config.RetentionConfig{InvocationTTL: time.Hour, SweepInterval: time.Hour}, store, zerolog.Nop())

	_, err := s.Sweep(context.Background())
	assert.Error(t, err)
}

func TestSweeper_Disabled(t *testing.T) {
	for _, cfg := range []config.RetentionConfig{
		{InvocationTTL: 0, SweepInterval: time.Hour},
		{InvocationTTL: time.Hour, SweepInterval: 0},
	} {
		s := NewSweeper(cfg, &fakePurger{}, zerolog.Nop())
		assert.False(t, s.Enabled())
		s.Start(context.Background())
		s.Stop()
	}
}

func TestSweeper_RunsOnInterval(t *testing.T) {
	store := &fakePurger{}
	s := NewSweeper(config.RetentionConfig{InvocationTTL: time.Hour, SweepInterval: 10 * time.Millisecond}, store, zerolog.Nop())

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return store.calls() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := store.calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, store.calls())
}
