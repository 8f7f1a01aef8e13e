// Package index holds the in-memory inverted index: a forward map from word
// to posting list, a reverse map from document to its word frequencies, the
// document metadata, and the insertion-ordered set of live document ids.
//
// MemoryIndex performs no locking. Callers serialize writers against readers;
// the only internal concurrency is the fan-out inside RemoveParallel.
package index

import (
	"container/list"
	"iter"

	"golang.org/x/sync/errgroup"
)

type MemoryIndex struct {
	forward map[string]Postings
	reverse map[int]WordFreqs
	docs    map[int]*Document
	order   *list.List
	slots   map[int]*list.Element
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		forward: make(map[string]Postings),
		reverse: make(map[int]WordFreqs),
		docs:    make(map[int]*Document),
		order:   list.New(),
		slots:   make(map[int]*list.Element),
	}
}

// Contains reports whether id is a live document.
func (m *MemoryIndex) Contains(id int) bool {
	_, ok := m.docs[id]
	return ok
}

// Insert stores doc and indexes words, which must already be validated and
// stop-word filtered. Each occurrence contributes 1/len(words) to the word's
// term frequency; a document without words gets no index entries.
// Insert assumes doc.ID is not present.
func (m *MemoryIndex) Insert(doc Document, words []string) {
	stored := doc
	m.docs[doc.ID] = &stored

	freqs := make(WordFreqs)
	if len(words) > 0 {
		invWordCount := 1.0 / float64(len(words))
		for _, word := range words {
			freqs[word] += invWordCount
		}
		for word, tf := range freqs {
			postings, ok := m.forward[word]
			if !ok {
				postings = make(Postings)
				m.forward[word] = postings
			}
			postings[doc.ID] = tf
		}
	}
	m.reverse[doc.ID] = freqs
	m.slots[doc.ID] = m.order.PushBack(doc.ID)
}

// Document returns the metadata of a live document.
func (m *MemoryIndex) Document(id int) (Document, bool) {
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// Postings returns the posting list of word. The returned map belongs to the
// index and must not be modified or retained past the current call.
func (m *MemoryIndex) Postings(word string) (Postings, bool) {
	postings, ok := m.forward[word]
	return postings, ok
}

// HasWord reports whether the document id contains word.
func (m *MemoryIndex) HasWord(word string, id int) bool {
	_, ok := m.forward[word][id]
	return ok
}

// WordFrequencies returns a copy of the document's word frequencies, or an
// empty map for an unknown id.
func (m *MemoryIndex) WordFrequencies(id int) WordFreqs {
	freqs := m.reverse[id]
	out := make(WordFreqs, len(freqs))
	for word, tf := range freqs {
		out[word] = tf
	}
	return out
}

func (m *MemoryIndex) DocCount() int {
	return len(m.docs)
}

// WordCount returns the number of distinct indexed words.
func (m *MemoryIndex) WordCount() int {
	return len(m.forward)
}

// IDs yields the live document ids in insertion order. Adding or removing a
// document while ranging over the sequence is not supported.
func (m *MemoryIndex) IDs() iter.Seq[int] {
	return func(yield func(int) bool) {
		for e := m.order.Front(); e != nil; e = e.Next() {
			if !yield(e.Value.(int)) {
				return
			}
		}
	}
}

// Remove erases the document from both indices, the metadata and the id set.
// It reports false when id was not present.
func (m *MemoryIndex) Remove(id int) bool {
	if !m.Contains(id) {
		return false
	}
	for word := range m.reverse[id] {
		postings := m.forward[word]
		delete(postings, id)
		if len(postings) == 0 {
			delete(m.forward, word)
		}
	}
	m.forget(id)
	return true
}

// RemoveParallel behaves like Remove but erases the posting-list entries on
// up to workers goroutines. Every goroutine writes to a different posting
// map and the forward map itself is only read until all of them finish.
func (m *MemoryIndex) RemoveParallel(id int, workers int) bool {
	if !m.Contains(id) {
		return false
	}
	freqs := m.reverse[id]
	words := make([]string, 0, len(freqs))
	lists := make([]Postings, 0, len(freqs))
	for word := range freqs {
		words = append(words, word)
		lists = append(lists, m.forward[word])
	}

	if workers < 1 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range lists {
		postings := lists[i]
		g.Go(func() error {
			delete(postings, id)
			return nil
		})
	}
	_ = g.Wait()

	for i, word := range words {
		if len(lists[i]) == 0 {
			delete(m.forward, word)
		}
	}
	m.forget(id)
	return true
}

func (m *MemoryIndex) forget(id int) {
	delete(m.reverse, id)
	delete(m.docs, id)
	if e, ok := m.slots[id]; ok {
		m.order.Remove(e)
		delete(m.slots, id)
	}
}
