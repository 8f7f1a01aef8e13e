// Package executor runs parsed queries against an index: top-K retrieval,
// per-document matching and batches of queries, each in a sequential and a
// parallel flavour that return identical results.
package executor

import (
	"fmt"
	"runtime"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/errors"
)

const defaultShardCount = 12

// Index is the read side of the document store used by query execution.
type Index interface {
	IsStopWord(word string) bool
	DocumentCount() int
	Document(id int) (index.Document, bool)
	Postings(word string) (index.Postings, bool)
	HasWord(word string, id int) bool
}

// Predicate decides whether a document may appear in the results.
type Predicate func(id int, status index.Status, rating int) bool

// StatusPredicate accepts documents with the given status.
func StatusPredicate(status index.Status) Predicate {
	return func(_ int, documentStatus index.Status, _ int) bool {
		return documentStatus == status
	}
}

// Policy selects sequential or parallel execution.
type Policy int

const (
	Sequential Policy = iota
	Parallel
)

func (p Policy) String() string {
	if p == Parallel {
		return "parallel"
	}
	return "sequential"
}

type Executor struct {
	idx        Index
	workers    int
	shardCount int
	chunkSize  int
}

type Option func(*Executor)

// WithWorkers bounds the goroutines of each parallel fan-out.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithShardCount sets the shard count of the relevance accumulator.
func WithShardCount(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.shardCount = n
		}
	}
}

// WithChunkSize sets how many postings one parallel task scores.
func WithChunkSize(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

func New(idx Index, opts ...Option) *Executor {
	e := &Executor{
		idx:        idx,
		workers:    runtime.GOMAXPROCS(0),
		shardCount: defaultShardCount,
		chunkSize:  1024,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FindTopDocuments returns at most ranker.MaxResultDocumentCount documents
// accepted by predicate, ordered by relevance. An invalid query fails before
// any scoring.
func (e *Executor) FindTopDocuments(policy Policy, rawQuery string, predicate Predicate) ([]ranker.ScoredDoc, error) {
	q, err := parser.Parse(rawQuery, e.idx)
	if err != nil {
		return nil, err
	}
	var relevance map[int]float64
	if policy == Parallel {
		relevance = e.findAllParallel(q, predicate)
	} else {
		relevance = e.findAll(q, predicate)
	}
	return ranker.Rank(relevance, e.ratingOf, ranker.MaxResultDocumentCount), nil
}

// FindTopDocumentsByStatus keeps only documents with the given status.
func (e *Executor) FindTopDocumentsByStatus(policy Policy, rawQuery string, status index.Status) ([]ranker.ScoredDoc, error) {
	return e.FindTopDocuments(policy, rawQuery, StatusPredicate(status))
}

// FindTopDocumentsDefault keeps only ACTUAL documents.
func (e *Executor) FindTopDocumentsDefault(policy Policy, rawQuery string) ([]ranker.ScoredDoc, error) {
	return e.FindTopDocumentsByStatus(policy, rawQuery, index.StatusActual)
}

func (e *Executor) ratingOf(id int) int {
	doc, _ := e.idx.Document(id)
	return doc.Rating
}

func (e *Executor) findAll(q *parser.Query, predicate Predicate) map[int]float64 {
	relevance := make(map[int]float64)
	total := e.idx.DocumentCount()
	for _, word := range q.PlusWords {
		postings, ok := e.idx.Postings(word)
		if !ok {
			continue
		}
		idf := ranker.IDF(total, len(postings))
		for id, tf := range postings {
			doc, _ := e.idx.Document(id)
			if predicate(id, doc.Status, doc.Rating) {
				relevance[id] += tf * idf
			}
		}
	}
	e.eliminateMinusWords(q, relevance)
	return relevance
}

// eliminateMinusWords drops every accumulated document that contains a minus
// word, whether or not it passed the predicate.
func (e *Executor) eliminateMinusWords(q *parser.Query, relevance map[int]float64) {
	for _, word := range q.MinusWords {
		postings, ok := e.idx.Postings(word)
		if !ok {
			continue
		}
		for id := range postings {
			delete(relevance, id)
		}
	}
}

// MatchDocumentResult lists the plus words found in a document.
type MatchDocumentResult struct {
	Words  []string     `json:"words"`
	Status index.Status `json:"status"`
}

// MatchDocument returns the sorted plus words present in document id, or no
// words when any minus word is present.
func (e *Executor) MatchDocument(policy Policy, rawQuery string, id int) (MatchDocumentResult, error) {
	if policy == Parallel {
		return e.matchDocumentParallel(rawQuery, id)
	}
	q, err := parser.Parse(rawQuery, e.idx)
	if err != nil {
		return MatchDocumentResult{}, err
	}
	doc, ok := e.idx.Document(id)
	if !ok {
		return MatchDocumentResult{}, fmt.Errorf("document %d: %w", id, apperrors.ErrUnknownDocumentID)
	}

	for _, word := range q.MinusWords {
		if e.idx.HasWord(word, id) {
			return MatchDocumentResult{Words: []string{}, Status: doc.Status}, nil
		}
	}
	words := make([]string, 0, len(q.PlusWords))
	for _, word := range q.PlusWords {
		if e.idx.HasWord(word, id) {
			words = append(words, word)
		}
	}
	return MatchDocumentResult{Words: words, Status: doc.Status}, nil
}
