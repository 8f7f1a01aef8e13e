package indexer

import (
	"fmt"
	"iter"
	"runtime"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/errors"
)

// Engine owns the stop-word set and the inverted index of one search server.
// It has no internal synchronization: AddDocument and the RemoveDocument
// variants must not run concurrently with each other or with any reader.
type Engine struct {
	memIndex  *index.MemoryIndex
	stopWords map[string]struct{}
	workers   int
}

type Option func(*Engine)

// WithWorkers bounds the number of goroutines used by RemoveDocumentParallel.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine builds an engine whose stop words are the space-separated words
// of stopWordsText.
func NewEngine(stopWordsText string, opts ...Option) (*Engine, error) {
	return NewEngineFromWords(tokenizer.SplitIntoWords(stopWordsText), opts...)
}

// NewEngineFromWords builds an engine from an explicit stop-word collection.
// Empty and repeated words are ignored; a word with a control character fails
// with ErrInvalidArgument.
func NewEngineFromWords(stopWords []string, opts ...Option) (*Engine, error) {
	set := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		if !tokenizer.IsValidWord(word) {
			return nil, fmt.Errorf("stop word %q contains a control character: %w", word, apperrors.ErrInvalidArgument)
		}
		if word != "" {
			set[word] = struct{}{}
		}
	}
	e := &Engine{
		memIndex:  index.NewMemoryIndex(),
		stopWords: set,
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) IsStopWord(word string) bool {
	_, ok := e.stopWords[word]
	return ok
}

// AddDocument validates and indexes a document. Nothing is stored when it
// fails.
func (e *Engine) AddDocument(id int, text string, status index.Status, ratings []int) error {
	if id < 0 {
		return fmt.Errorf("document id %d is negative: %w", id, apperrors.ErrInvalidDocumentID)
	}
	if e.memIndex.Contains(id) {
		return fmt.Errorf("document id %d already exists: %w", id, apperrors.ErrInvalidDocumentID)
	}

	words, err := e.splitIntoWordsNoStop(text)
	if err != nil {
		return err
	}
	e.memIndex.Insert(index.Document{
		ID:     id,
		Status: status,
		Rating: ComputeAverageRating(ratings),
		Text:   text,
	}, words)
	return nil
}

func (e *Engine) splitIntoWordsNoStop(text string) ([]string, error) {
	words := make([]string, 0)
	for word := range tokenizer.Words(text) {
		if !tokenizer.IsValidWord(word) {
			return nil, fmt.Errorf("word %q contains a control character: %w", word, apperrors.ErrInvalidWord)
		}
		if !e.IsStopWord(word) {
			words = append(words, word)
		}
	}
	return words, nil
}

// ComputeAverageRating returns the integer mean of ratings, truncated toward
// zero, or 0 for no ratings.
func ComputeAverageRating(ratings []int) int {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return sum / len(ratings)
}

// RemoveDocument deletes the document and all its index entries. Unknown ids
// are ignored.
func (e *Engine) RemoveDocument(id int) {
	e.memIndex.Remove(id)
}

// RemoveDocumentParallel is RemoveDocument with the posting-list erasures
// spread over the engine's workers.
func (e *Engine) RemoveDocumentParallel(id int) {
	e.memIndex.RemoveParallel(id, e.workers)
}

// GetWordFrequencies returns the document's word frequencies, or an empty map
// when id is unknown.
func (e *Engine) GetWordFrequencies(id int) map[string]float64 {
	return e.memIndex.WordFrequencies(id)
}

func (e *Engine) DocumentCount() int {
	return e.memIndex.DocCount()
}

// DocumentIDs yields the live document ids in insertion order.
func (e *Engine) DocumentIDs() iter.Seq[int] {
	return e.memIndex.IDs()
}

func (e *Engine) Document(id int) (index.Document, bool) {
	return e.memIndex.Document(id)
}

// Postings exposes the posting list of word to the ranking code. The map is
// owned by the engine and must not be modified.
func (e *Engine) Postings(word string) (index.Postings, bool) {
	return e.memIndex.Postings(word)
}

func (e *Engine) HasWord(word string, id int) bool {
	return e.memIndex.HasWord(word, id)
}

func (e *Engine) WordCount() int {
	return e.memIndex.WordCount()
}

func (e *Engine) Workers() int {
	return e.workers
}
