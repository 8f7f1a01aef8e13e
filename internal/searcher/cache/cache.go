// Package cache memoizes top-document results. A bounded in-process LRU sits
// in front of an optional shared Redis tier, and concurrent misses for the
// same key are collapsed with singleflight.
//
// Keys carry the index generation. Every mutation bumps the generation, so a
// result computed against an older index can never be served afterwards.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/ranker"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/resilience"
)

const keyPrefix = "search:"

// Remote is the shared cache tier.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	LocalHits  int64  `json:"local_hits"`
	RemoteHits int64  `json:"remote_hits"`
	Misses     int64  `json:"misses"`
	Entries    int    `json:"entries"`
	Generation uint64 `json:"generation"`
}

type QueryCache struct {
	local      *lru.Cache[string, []ranker.ScoredDoc]
	remote     Remote
	ttl        time.Duration
	group      singleflight.Group
	generation atomic.Uint64
	logger     *slog.Logger
	localHits  atomic.Int64
	remoteHits atomic.Int64
	misses     atomic.Int64
}

// New creates a cache holding up to size results locally. remote may be nil.
// The generation starts at the construction time so remote entries written
// by a previous process are never read back.
func New(size int, remote Remote, ttl time.Duration) (*QueryCache, error) {
	local, err := lru.New[string, []ranker.ScoredDoc](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	c := &QueryCache{
		local:  local,
		remote: remote,
		ttl:    ttl,
		logger: slog.Default().With("component", "query-cache"),
	}
	c.generation.Store(uint64(time.Now().UnixNano()))
	return c, nil
}

// Key builds the cache key of a parsed query under the current generation.
// Parallel and sequential execution produce the same ranking, so the policy
// is not part of the key.
func (c *QueryCache) Key(q *parser.Query, status index.Status) string {
	raw := fmt.Sprintf("%s|-%s|status=%d",
		strings.Join(q.PlusWords, "\x00"),
		strings.Join(q.MinusWords, "\x00"),
		status,
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%d:%x", keyPrefix, c.generation.Load(), hash[:16])
}

// Get looks the key up locally, then remotely. A remote hit is promoted to
// the local tier.
func (c *QueryCache) Get(ctx context.Context, key string) ([]ranker.ScoredDoc, bool) {
	if docs, ok := c.local.Get(key); ok {
		c.localHits.Add(1)
		return docs, true
	}
	if c.remote == nil {
		c.misses.Add(1)
		return nil, false
	}
	data, err := c.remote.Get(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, pkgredis.ErrMiss):
		case errors.Is(err, resilience.ErrCircuitOpen):
			c.logger.Debug("cache get skipped", "key", key, "error", err)
		default:
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var docs []ranker.ScoredDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.remoteHits.Add(1)
	c.local.Add(key, docs)
	return docs, true
}

func (c *QueryCache) Set(ctx context.Context, key string, docs []ranker.ScoredDoc) {
	c.local.Add(key, docs)
	if c.remote == nil {
		return
	}
	data, err := json.Marshal(docs)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.remote.Set(ctx, key, data, c.ttl); err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for key or computes it once for all
// concurrent callers. The boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key string,
	computeFn func() ([]ranker.ScoredDoc, error),
) ([]ranker.ScoredDoc, bool, error) {
	if docs, ok := c.Get(ctx, key); ok {
		return docs, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		if docs, ok := c.local.Get(key); ok {
			return docs, nil
		}
		docs, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, docs)
		return docs, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]ranker.ScoredDoc), false, nil
}

// Invalidate moves to a new generation and drops the local tier.
func (c *QueryCache) Invalidate() {
	c.generation.Add(1)
	c.local.Purge()
}

// Flush invalidates and deletes every remote key.
func (c *QueryCache) Flush(ctx context.Context) error {
	c.Invalidate()
	if c.remote == nil {
		return nil
	}
	deleted, err := c.remote.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("flushing cache: %w", err)
	}
	c.logger.Info("cache flushed", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() Stats {
	return Stats{
		LocalHits:  c.localHits.Load(),
		RemoteHits: c.remoteHits.Load(),
		Misses:     c.misses.Load(),
		Entries:    c.local.Len(),
		Generation: c.generation.Load(),
	}
}
