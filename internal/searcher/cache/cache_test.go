package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/ranker"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/redis"
)

type fakeRemote struct {
	mu    sync.Mutex
	items map[string][]byte
	fail  error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{items: make(map[string][]byte)}
}

func (f *fakeRemote) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	v, ok := f.items[key]
	if !ok {
		return nil, pkgredis.ErrMiss
	}
	return v, nil
}

func (f *fakeRemote) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.items[key] = value
	return nil
}

func (f *fakeRemote) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range f.items {
		if strings.HasPrefix(k, prefix) {
			delete(f.items, k)
			n++
		}
	}
	return n, nil
}

type noStopWords struct{}

func (noStopWords) IsStopWord(string) bool { return false }

func mustParse(t *testing.T, raw string) *parser.Query {
	t.Helper()
	q, err := parser.Parse(raw, noStopWords{})
	require.NoError(t, err)
	return q
}

var sample = []ranker.ScoredDoc{{ID: 1, Relevance: 0.5, Rating: 3}}

func TestKeyNormalizesQuery(t *testing.T) {
	c, err := New(8, nil, time.Minute)
	require.NoError(t, err)

	a := c.Key(mustParse(t, "cat dog -forest"), index.StatusActual)
	b := c.Key(mustParse(t, "dog  cat -forest cat"), index.StatusActual)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c.Key(mustParse(t, "cat dog forest"), index.StatusActual))
	assert.NotEqual(t, a, c.Key(mustParse(t, "cat dog -forest"), index.StatusBanned))
	assert.NotEqual(t, c.Key(mustParse(t, "Cat"), index.StatusActual), c.Key(mustParse(t, "cat"), index.StatusActual))
}

func TestGetOrComputeLocal(t *testing.T) {
	c, err := New(8, nil, time.Minute)
	require.NoError(t, err)
	key := c.Key(mustParse(t, "cat"), index.StatusActual)

	var calls atomic.Int32
	compute := func() ([]ranker.ScoredDoc, error) {
		calls.Add(1)
		return sample, nil
	}

	docs, hit, err := c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, sample, docs)

	docs, hit, err = c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sample, docs)
	assert.Equal(t, int32(1), calls.Load())

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.LocalHits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestComputeErrorIsNotCached(t *testing.T) {
	c, err := New(8, nil, time.Minute)
	require.NoError(t, err)
	boom := errors.New("boom")

	_, _, err = c.GetOrCompute(context.Background(), "k", func() ([]ranker.ScoredDoc, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestInvalidateChangesKeys(t *testing.T) {
	c, err := New(8, nil, time.Minute)
	require.NoError(t, err)
	q := mustParse(t, "cat")
	before := c.Key(q, index.StatusActual)
	c.Set(context.Background(), before, sample)

	c.Invalidate()
	after := c.Key(q, index.StatusActual)
	assert.NotEqual(t, before, after)
	_, ok := c.Get(context.Background(), after)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestRemoteTierPromotes(t *testing.T) {
	remote := newFakeRemote()
	writer, err := New(8, remote, time.Minute)
	require.NoError(t, err)
	key := writer.Key(mustParse(t, "cat"), index.StatusActual)
	writer.Set(context.Background(), key, sample)

	reader, err := New(8, remote, time.Minute)
	require.NoError(t, err)
	docs, ok := reader.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, sample, docs)
	assert.Equal(t, int64(1), reader.Stats().RemoteHits)

	_, ok = reader.Get(context.Background(), key)
	assert.True(t, ok)
	assert.Equal(t, int64(1), reader.Stats().LocalHits)

	require.NoError(t, writer.Flush(context.Background()))
	assert.Empty(t, remote.items)
}

func TestRemoteFailureIsAMiss(t *testing.T) {
	remote := newFakeRemote()
	remote.fail = errors.New("connection refused")
	c, err := New(8, remote, time.Minute)
	require.NoError(t, err)

	docs, hit, err := c.GetOrCompute(context.Background(), "k", func() ([]ranker.ScoredDoc, error) { return sample, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, sample, docs)
}

func TestSingleflightCollapsesConcurrentMisses(t *testing.T) {
	c, err := New(8, nil, time.Minute)
	require.NoError(t, err)

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() ([]ranker.ScoredDoc, error) {
		calls.Add(1)
		<-release
		return sample, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs, _, err := c.GetOrCompute(context.Background(), "same", compute)
			assert.NoError(t, err)
			assert.Equal(t, sample, docs)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}
