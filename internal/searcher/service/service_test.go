package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/metrics"
)

type fixture struct {
	svc     *Service
	metrics *metrics.Metrics
	cache   *cache.QueryCache
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	engine, err := indexer.NewEngine("and with", indexer.WithWorkers(4))
	require.NoError(t, err)
	exec := executor.New(engine, executor.WithWorkers(4))

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)
	c, err := cache.New(16, nil, time.Minute)
	require.NoError(t, err)

	all := append([]Option{WithMetrics(m), WithCache(c), WithPageSize(2)}, opts...)
	svc := New(engine, exec, all...)

	ctx := context.Background()
	docs := []AddDocumentRequest{
		{ID: 1, Text: "funny pet and nasty rat", Status: index.StatusActual, Ratings: []int{7, 2, 7}},
		{ID: 2, Text: "funny pet with curly hair", Status: index.StatusActual, Ratings: []int{1, 2}},
		{ID: 3, Text: "funny pet with curly hair", Status: index.StatusActual, Ratings: []int{1, 2}},
		{ID: 4, Text: "nasty rat with curly hair", Status: index.StatusBanned, Ratings: []int{3}},
	}
	for _, d := range docs {
		require.NoError(t, svc.AddDocument(ctx, d))
	}
	return fixture{svc: svc, metrics: m, cache: c}
}

func TestAddDocumentErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.AddDocument(ctx, AddDocumentRequest{ID: 1, Text: "again"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidDocumentID)
	err = f.svc.AddDocument(ctx, AddDocumentRequest{ID: -1, Text: "neg"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidDocumentID)
	err = f.svc.AddDocument(ctx, AddDocumentRequest{ID: 9, Text: "bad\x01word"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidWord)

	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.DocsAddedTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.IndexedDocuments))
}

func TestSearchPaginatesAndCaches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Search(ctx, SearchRequest{Query: "funny pet"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.TotalPages)
	assert.Len(t, res.Documents, 2)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, res.Documents[0].ID, "highest rating wins the relevance tie")

	res, err = f.svc.Search(ctx, SearchRequest{Query: "pet funny", Page: 2, Policy: executor.Parallel})
	require.NoError(t, err)
	assert.True(t, res.Cached)
	require.Len(t, res.Documents, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheMissesTotal))
}

func TestMutationInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Search(ctx, SearchRequest{Query: "curly"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	require.True(t, f.svc.RemoveDocument(ctx, 3, executor.Parallel))

	res, err = f.svc.Search(ctx, SearchRequest{Query: "curly"})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 2, res.Documents[0].ID)
}

func TestSearchByStatus(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Search(context.Background(), SearchRequest{Query: "rat", Status: index.StatusBanned})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, 4, res.Documents[0].ID)
}

func TestSearchErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Search(ctx, SearchRequest{Query: "--rat"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
	_, err = f.svc.Search(ctx, SearchRequest{Query: "rat", PageSize: -1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SearchQueriesTotal.WithLabelValues("sequential", "error")))
}

func TestRemoveUnknownDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assert.False(t, f.svc.RemoveDocument(ctx, 42, executor.Sequential))
	assert.False(t, f.svc.RemoveDocument(ctx, 42, executor.Parallel))
	assert.Equal(t, 4, f.svc.Stats().Documents)

	assert.True(t, f.svc.RemoveDocument(ctx, 4, executor.Sequential))
	assert.False(t, f.svc.RemoveDocument(ctx, 4, executor.Sequential), "second removal is a no-op")
	assert.Equal(t, 3, f.svc.Stats().Documents)
}

func TestRemoveDuplicates(t *testing.T) {
	f := newFixture(t)
	removed := f.svc.RemoveDuplicates(context.Background())
	assert.Equal(t, []int{3}, removed)
	assert.Equal(t, 3, f.svc.Stats().Documents)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DuplicatesRemoved))
}

func TestMatchAndWordFrequencies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Match(ctx, "curly rat -dog", 4, executor.Parallel)
	require.NoError(t, err)
	assert.Equal(t, []string{"curly", "rat"}, res.Words)
	assert.Equal(t, index.StatusBanned, res.Status)

	_, err = f.svc.Match(ctx, "rat", 99, executor.Sequential)
	assert.ErrorIs(t, err, apperrors.ErrUnknownDocumentID)

	freqs, err := f.svc.WordFrequencies(2)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, freqs["curly"], 1e-9)
	_, err = f.svc.WordFrequencies(99)
	assert.ErrorIs(t, err, apperrors.ErrUnknownDocumentID)
}

func TestStatsTracksEmptyResults(t *testing.T) {
	f := newFixture(t, WithRequestWindow(2))
	ctx := context.Background()

	for _, q := range []string{"nothing", "funny", "void"} {
		_, err := f.svc.Search(ctx, SearchRequest{Query: q})
		require.NoError(t, err)
	}
	st := f.svc.Stats()
	assert.Equal(t, 2, st.WindowRequests)
	assert.Equal(t, 1, st.NoResultRequests)
	require.NotNil(t, st.Cache)
}

func TestUncachedSearchesFeedRequestQueue(t *testing.T) {
	engine, err := indexer.NewEngine("and")
	require.NoError(t, err)
	svc := New(engine, executor.New(engine), WithRequestWindow(3))
	ctx := context.Background()
	require.NoError(t, svc.AddDocument(ctx, AddDocumentRequest{ID: 1, Text: "curly cat", Status: index.StatusBanned}))

	for _, req := range []SearchRequest{
		{Query: "curly"},
		{Query: "curly", Status: index.StatusBanned, Policy: executor.Parallel},
		{Query: "dog"},
	} {
		res, err := svc.Search(ctx, req)
		require.NoError(t, err)
		assert.False(t, res.Cached)
	}
	_, err = svc.Search(ctx, SearchRequest{Query: "--curly"})
	require.ErrorIs(t, err, apperrors.ErrInvalidQuery)

	st := svc.Stats()
	assert.Equal(t, 3, st.WindowRequests)
	assert.Equal(t, 2, st.NoResultRequests)
	assert.Nil(t, st.Cache)
}

func TestProcessQueries(t *testing.T) {
	f := newFixture(t)
	results, err := f.svc.ProcessQueries(context.Background(), []string{"nasty", "hair -curly"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0], 1)
	assert.Empty(t, results[1])
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				id := 100 + w*100 + i
				assert.NoError(t, f.svc.AddDocument(ctx, AddDocumentRequest{ID: id, Text: fmt.Sprintf("funny word%d", i)}))
				if i%2 == 0 {
					assert.True(t, f.svc.RemoveDocument(ctx, id, executor.Parallel))
				}
			}
		}()
	}
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_, err := f.svc.Search(ctx, SearchRequest{Query: "funny -nasty", Policy: executor.Parallel})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 4+4*25, f.svc.Stats().Documents)
}
