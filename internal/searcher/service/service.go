// Package service is the concurrency boundary of the search server. The
// engine itself has no synchronization; Service serializes mutations behind
// a write lock and lets any number of queries run under the read lock. It
// also owns the result cache, the request statistics and the metrics.
package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/dedupe"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/paginator"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/requestqueue"
	apperrors "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/metrics"
)

const defaultPageSize = 5

type Service struct {
	mu       sync.RWMutex
	engine   *indexer.Engine
	exec     *executor.Executor
	queue    *requestqueue.Queue
	cache    *cache.QueryCache
	metrics  *metrics.Metrics
	pageSize int
}

type Option func(*Service)

// WithCache memoizes search results. Without it every query hits the index.
func WithCache(c *cache.QueryCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRequestWindow sets how many recent requests the no-result statistic
// covers.
func WithRequestWindow(n int) Option {
	return func(s *Service) { s.queue = requestqueue.New(s.exec, n) }
}

func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func New(engine *indexer.Engine, exec *executor.Executor, opts ...Option) *Service {
	s := &Service{
		engine:   engine,
		exec:     exec,
		queue:    requestqueue.New(exec, requestqueue.DefaultWindow),
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.observeIndex()
	return s
}

// AddDocumentRequest is the payload of an add operation.
type AddDocumentRequest struct {
	ID      int          `json:"id"      yaml:"id"`
	Text    string       `json:"text"    yaml:"text"`
	Status  index.Status `json:"status"  yaml:"status"`
	Ratings []int        `json:"ratings" yaml:"ratings"`
}

func (s *Service) AddDocument(ctx context.Context, req AddDocumentRequest) error {
	s.mu.Lock()
	err := s.engine.AddDocument(req.ID, req.Text, req.Status, req.Ratings)
	if err == nil {
		s.afterMutation()
	}
	s.mu.Unlock()

	log := logger.FromContext(ctx)
	if err != nil {
		log.Warn("add document rejected", "doc_id", req.ID, "error", err)
		return err
	}
	if s.metrics != nil {
		s.metrics.DocsAddedTotal.Inc()
	}
	log.Debug("document added", "doc_id", req.ID, "status", req.Status)
	return nil
}

// RemoveDocument removes id with the given policy and reports whether it was
// stored. Removing an unknown id is a no-op.
func (s *Service) RemoveDocument(ctx context.Context, id int, policy executor.Policy) bool {
	s.mu.Lock()
	_, ok := s.engine.Document(id)
	if ok {
		if policy == executor.Parallel {
			s.engine.RemoveDocumentParallel(id)
		} else {
			s.engine.RemoveDocument(id)
		}
		s.afterMutation()
	}
	s.mu.Unlock()

	log := logger.FromContext(ctx)
	if !ok {
		log.Debug("remove of unknown document ignored", "doc_id", id)
		return false
	}
	if s.metrics != nil {
		s.metrics.DocsRemovedTotal.WithLabelValues(policy.String()).Inc()
	}
	log.Debug("document removed", "doc_id", id, "policy", policy)
	return true
}

// RemoveDuplicates drops every document whose word set repeats an earlier one.
func (s *Service) RemoveDuplicates(ctx context.Context) []int {
	s.mu.Lock()
	removed := dedupe.RemoveDuplicates(s.engine, logger.FromContext(ctx))
	if len(removed) > 0 {
		s.afterMutation()
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.DuplicatesRemoved.Add(float64(len(removed)))
	}
	return removed
}

// FlushCache drops every cached result, including the remote tier.
func (s *Service) FlushCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Flush(ctx)
}

// afterMutation runs under the write lock.
func (s *Service) afterMutation() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
	s.observeIndex()
}

func (s *Service) observeIndex() {
	if s.metrics == nil {
		return
	}
	s.metrics.IndexedDocuments.Set(float64(s.engine.DocumentCount()))
	s.metrics.IndexedWords.Set(float64(s.engine.WordCount()))
}

// SearchRequest selects documents with Status matching Query. Page is
// 1-based; zero values mean the first page and the configured page size.
type SearchRequest struct {
	Query    string
	Status   index.Status
	Policy   executor.Policy
	Page     int
	PageSize int
}

type SearchResult struct {
	Query      string             `json:"query"`
	Documents  []ranker.ScoredDoc `json:"documents"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
	Cached     bool               `json:"cached"`
	LatencyMs  float64            `json:"latency_ms"`
}

func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	start := time.Now()
	page := req.Page
	if page == 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = s.pageSize
	}

	docs, cached, err := s.findTop(ctx, req)
	latency := time.Since(start)
	s.observeSearch(req.Policy, docs, cached, err, latency)
	log := logger.FromContext(ctx)
	if err != nil {
		log.Warn("search failed", "query", req.Query, "error", err)
		return nil, err
	}

	pages, err := paginator.Paginate(docs, pageSize)
	if err != nil {
		return nil, err
	}
	current, err := paginator.Page(docs, pageSize, page)
	if err != nil {
		return nil, err
	}

	log.Info("search completed",
		"query", req.Query,
		"policy", req.Policy,
		"total_hits", len(docs),
		"cache_hit", cached,
		"latency_ms", latency.Milliseconds(),
	)
	return &SearchResult{
		Query:      req.Query,
		Documents:  current,
		Total:      len(docs),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: len(pages),
		Cached:     cached,
		LatencyMs:  float64(latency.Microseconds()) / 1000,
	}, nil
}

// findTop records the outcome of every successful search in the request
// queue. Uncached searches go through the queue itself.
func (s *Service) findTop(ctx context.Context, req SearchRequest) ([]ranker.ScoredDoc, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cache == nil {
		docs, err := s.queue.AddFindRequestByStatus(req.Policy, req.Query, req.Status)
		return docs, false, err
	}
	q, err := parser.Parse(req.Query, s.engine)
	if err != nil {
		return nil, false, err
	}
	docs, cached, err := s.cache.GetOrCompute(ctx, s.cache.Key(q, req.Status), func() ([]ranker.ScoredDoc, error) {
		return s.exec.FindTopDocumentsByStatus(req.Policy, req.Query, req.Status)
	})
	if err == nil {
		s.queue.Record(len(docs) == 0)
	}
	return docs, cached, err
}

func (s *Service) observeSearch(policy executor.Policy, docs []ranker.ScoredDoc, cached bool, err error, latency time.Duration) {
	if s.metrics == nil {
		return
	}
	resultType := "ok"
	switch {
	case err != nil:
		resultType = "error"
	case len(docs) == 0:
		resultType = "zero_result"
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(policy.String(), resultType).Inc()
	if err != nil {
		return
	}
	cacheStatus := "miss"
	if cached {
		cacheStatus = "hit"
		s.metrics.CacheHitsTotal.Inc()
	} else if s.cache != nil {
		s.metrics.CacheMissesTotal.Inc()
	}
	s.metrics.SearchLatency.WithLabelValues(policy.String(), cacheStatus).Observe(latency.Seconds())
	s.metrics.SearchResultsCount.Observe(float64(len(docs)))
}

// Match reports which plus words of the query occur in document id.
func (s *Service) Match(ctx context.Context, rawQuery string, id int, policy executor.Policy) (executor.MatchDocumentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, err := s.exec.MatchDocument(policy, rawQuery, id)
	if err != nil {
		logger.FromContext(ctx).Debug("match failed", "query", rawQuery, "doc_id", id, "error", err)
	}
	return res, err
}

// ProcessQueries runs every query against ACTUAL documents in parallel.
func (s *Service) ProcessQueries(ctx context.Context, queries []string) ([][]ranker.ScoredDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results, err := s.exec.ProcessQueries(queries)
	if err != nil {
		return nil, err
	}
	for _, docs := range results {
		s.queue.Record(len(docs) == 0)
	}
	logger.FromContext(ctx).Debug("batch processed", "queries", len(queries))
	return results, nil
}

// WordFrequencies returns the word frequencies of id, or ErrUnknownDocumentID.
func (s *Service) WordFrequencies(id int) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.engine.Document(id); !ok {
		return nil, fmt.Errorf("document %d: %w", id, apperrors.ErrUnknownDocumentID)
	}
	return s.engine.GetWordFrequencies(id), nil
}

// Document returns the stored metadata of id.
func (s *Service) Document(id int) (index.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Document(id)
}

// DocumentIDs returns the stored ids in insertion order.
func (s *Service) DocumentIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(s.engine.DocumentIDs())
}

type Stats struct {
	Documents        int          `json:"documents"`
	Words            int          `json:"words"`
	Workers          int          `json:"workers"`
	WindowRequests   int          `json:"window_requests"`
	NoResultRequests int          `json:"no_result_requests"`
	Cache            *cache.Stats `json:"cache,omitempty"`
}

func (s *Service) Stats() Stats {
	s.mu.RLock()
	st := Stats{
		Documents: s.engine.DocumentCount(),
		Words:     s.engine.WordCount(),
		Workers:   s.engine.Workers(),
	}
	s.mu.RUnlock()
	st.WindowRequests = s.queue.Len()
	st.NoResultRequests = s.queue.NoResultRequests()
	if s.cache != nil {
		cs := s.cache.Stats()
		st.Cache = &cs
	}
	return st
}
