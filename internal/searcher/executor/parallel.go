package executor

import (
	"fmt"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/shardmap"
	apperrors "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/errors"
)

type posting struct {
	id int
	tf float64
}

// contributions holds one score slot per plus word of a query, in the order
// of Query.PlusWords.
type contributions []float64

// findAllParallel scores plus words on separate goroutines, and splits long
// posting lists into chunks of e.chunkSize. Each worker writes its word's
// score into that word's slot of the document's contributions, so no two
// workers touch the same slot. Minus words are erased from the accumulator
// concurrently once scoring is done, and the slots of every survivor are
// summed in word order, which gives the same float as findAll.
func (e *Executor) findAllParallel(q *parser.Query, predicate Predicate) map[int]float64 {
	acc := shardmap.New[int, contributions](e.shardCount, shardmap.IntHasher[int])
	total := e.idx.DocumentCount()
	words := len(q.PlusWords)

	var g errgroup.Group
	g.SetLimit(e.workers)
	for slot, word := range q.PlusWords {
		postings, ok := e.idx.Postings(word)
		if !ok {
			continue
		}
		idf := ranker.IDF(total, len(postings))
		g.Go(func() error {
			e.accumulateWord(acc, postings, idf, slot, words, predicate)
			return nil
		})
	}
	_ = g.Wait()

	e.eraseMinusWords(q, acc)
	relevance := make(map[int]float64, acc.Len())
	for id, parts := range acc.BuildOrdinaryMap() {
		var sum float64
		for _, part := range parts {
			sum += part
		}
		relevance[id] = sum
	}
	return relevance
}

func (e *Executor) accumulateWord(acc *shardmap.Map[int, contributions], postings index.Postings, idf float64, slot, words int, predicate Predicate) {
	if len(postings) <= e.chunkSize {
		for id, tf := range postings {
			e.accumulate(acc, id, slot, words, tf*idf, predicate)
		}
		return
	}

	entries := make([]posting, 0, len(postings))
	for id, tf := range postings {
		entries = append(entries, posting{id: id, tf: tf})
	}
	var g errgroup.Group
	g.SetLimit(e.workers)
	for chunk := range slices.Chunk(entries, e.chunkSize) {
		g.Go(func() error {
			for _, p := range chunk {
				e.accumulate(acc, p.id, slot, words, p.tf*idf, predicate)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Executor) accumulate(acc *shardmap.Map[int, contributions], id, slot, words int, score float64, predicate Predicate) {
	doc, _ := e.idx.Document(id)
	if !predicate(id, doc.Status, doc.Rating) {
		return
	}
	a := acc.Access(id)
	if *a.Value == nil {
		*a.Value = make(contributions, words)
	}
	(*a.Value)[slot] = score
	a.Release()
}

// eraseMinusWords is the sharded counterpart of eliminateMinusWords. It only
// runs after every scoring worker has returned.
func (e *Executor) eraseMinusWords(q *parser.Query, acc *shardmap.Map[int, contributions]) {
	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, word := range q.MinusWords {
		postings, ok := e.idx.Postings(word)
		if !ok {
			continue
		}
		g.Go(func() error {
			for id := range postings {
				acc.Erase(id)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// matchDocumentParallel works on the unsorted query: minus words are probed
// concurrently, matched plus words are collected in a sharded set that also
// removes duplicates, and the survivors are sorted.
func (e *Executor) matchDocumentParallel(rawQuery string, id int) (MatchDocumentResult, error) {
	q, err := parser.ParseUnsorted(rawQuery, e.idx)
	if err != nil {
		return MatchDocumentResult{}, err
	}
	doc, ok := e.idx.Document(id)
	if !ok {
		return MatchDocumentResult{}, fmt.Errorf("document %d: %w", id, apperrors.ErrUnknownDocumentID)
	}

	var vetoed atomic.Bool
	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, word := range q.MinusWords {
		g.Go(func() error {
			if !vetoed.Load() && e.idx.HasWord(word, id) {
				vetoed.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()
	if vetoed.Load() {
		return MatchDocumentResult{Words: []string{}, Status: doc.Status}, nil
	}

	matched := shardmap.New[string, struct{}](e.shardCount, shardmap.StringHasher)
	var pg errgroup.Group
	pg.SetLimit(e.workers)
	for _, word := range q.PlusWords {
		pg.Go(func() error {
			if e.idx.HasWord(word, id) {
				matched.Update(word, func(*struct{}) {})
			}
			return nil
		})
	}
	_ = pg.Wait()

	words := make([]string, 0, len(q.PlusWords))
	for word := range matched.BuildOrdinaryMap() {
		words = append(words, word)
	}
	slices.Sort(words)
	return MatchDocumentResult{Words: words, Status: doc.Status}, nil
}

// ProcessQueries runs FindTopDocumentsDefault for every query concurrently.
// Results keep the order of queries; the first failing query fails the batch.
func (e *Executor) ProcessQueries(queries []string) ([][]ranker.ScoredDoc, error) {
	results := make([][]ranker.ScoredDoc, len(queries))
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, raw := range queries {
		g.Go(func() error {
			docs, err := e.FindTopDocumentsDefault(Sequential, raw)
			if err != nil {
				return fmt.Errorf("query %d %q: %w", i, raw, err)
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ProcessQueriesJoined flattens ProcessQueries into one list.
func (e *Executor) ProcessQueriesJoined(queries []string) ([]ranker.ScoredDoc, error) {
	batches, err := e.ProcessQueries(queries)
	if err != nil {
		return nil, err
	}
	joined := make([]ranker.ScoredDoc, 0, len(batches)*ranker.MaxResultDocumentCount)
	for _, docs := range batches {
		joined = append(joined, docs...)
	}
	return joined, nil
}
