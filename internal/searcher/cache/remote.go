package cache

import (
	"context"
	"errors"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/resilience"
)

// breakerRemote stops talking to the shared tier while it keeps failing, so
// a dead Redis costs one fast error per lookup instead of a dial timeout.
type breakerRemote struct {
	next    Remote
	breaker *resilience.CircuitBreaker
}

// WithBreaker guards remote with cb. Cache misses do not count as failures.
func WithBreaker(remote Remote, cb *resilience.CircuitBreaker) Remote {
	return &breakerRemote{next: remote, breaker: cb}
}

func isMiss(err error) bool { return errors.Is(err, pkgredis.ErrMiss) }

func (r *breakerRemote) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.breaker.Execute(func() error {
		var err error
		data, err = r.next.Get(ctx, key)
		return err
	}, isMiss)
	return data, err
}

func (r *breakerRemote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.breaker.Execute(func() error {
		return r.next.Set(ctx, key, value, ttl)
	})
}

func (r *breakerRemote) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var n int64
	err := r.breaker.Execute(func() error {
		var err error
		n, err = r.next.FlushByPattern(ctx, pattern)
		return err
	})
	return n, err
}
