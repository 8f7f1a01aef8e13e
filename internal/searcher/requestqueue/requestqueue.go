// Package requestqueue tracks the outcome of the most recent search requests
// and counts how many of them returned nothing.
package requestqueue

import (
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/ranker"
)

// DefaultWindow is one request per minute over a day.
const DefaultWindow = 1440

// Finder is the part of the executor the queue forwards to.
type Finder interface {
	FindTopDocuments(policy executor.Policy, rawQuery string, predicate executor.Predicate) ([]ranker.ScoredDoc, error)
}

// Queue keeps the empty/non-empty outcome of the last window requests in a
// ring buffer. It is safe for concurrent use.
type Queue struct {
	mu        sync.Mutex
	finder    Finder
	outcomes  []bool
	next      int
	size      int
	noResults int
}

func New(finder Finder, window int) *Queue {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Queue{
		finder:   finder,
		outcomes: make([]bool, window),
	}
}

// AddFindRequest forwards the query and records whether it came back empty.
// Failed queries are returned unrecorded.
func (q *Queue) AddFindRequest(policy executor.Policy, rawQuery string, predicate executor.Predicate) ([]ranker.ScoredDoc, error) {
	docs, err := q.finder.FindTopDocuments(policy, rawQuery, predicate)
	if err != nil {
		return nil, err
	}
	q.Record(len(docs) == 0)
	return docs, nil
}

func (q *Queue) AddFindRequestByStatus(policy executor.Policy, rawQuery string, status index.Status) ([]ranker.ScoredDoc, error) {
	return q.AddFindRequest(policy, rawQuery, executor.StatusPredicate(status))
}

func (q *Queue) AddFindRequestDefault(policy executor.Policy, rawQuery string) ([]ranker.ScoredDoc, error) {
	return q.AddFindRequestByStatus(policy, rawQuery, index.StatusActual)
}

// Record appends one outcome, evicting the oldest once the window is full.
func (q *Queue) Record(empty bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == len(q.outcomes) {
		if q.outcomes[q.next] {
			q.noResults--
		}
	} else {
		q.size++
	}
	q.outcomes[q.next] = empty
	if empty {
		q.noResults++
	}
	q.next = (q.next + 1) % len(q.outcomes)
}

// NoResultRequests returns how many requests in the window returned nothing.
func (q *Queue) NoResultRequests() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.noResults
}

// Len returns the number of requests currently in the window.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}
