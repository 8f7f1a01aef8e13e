package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(limit int, window time.Duration) (*Limiter, *time.Time) {
	now := time.Unix(1000, 0)
	l := New(limit, window)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowConsumesAndRefills(t *testing.T) {
	l, now := newTestLimiter(2, 10*time.Second)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys have separate buckets")

	assert.Equal(t, 5*time.Second, l.RetryAfter("a"))
	*now = now.Add(5 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	*now = now.Add(time.Hour)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "refill is capped at the limit")
}

func TestPrune(t *testing.T) {
	l, now := newTestLimiter(1, time.Second)
	l.Allow("old")
	*now = now.Add(3 * time.Second)
	l.Allow("new")

	l.Prune()
	assert.Equal(t, 1, l.Len())
	assert.Zero(t, l.RetryAfter("old"))
}

func TestRunPrunerStops(t *testing.T) {
	l := New(1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.RunPruner(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruner did not stop")
	}
}
