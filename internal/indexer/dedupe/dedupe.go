// Package dedupe removes documents whose set of indexed words repeats the set
// of an earlier document.
package dedupe

import (
	"iter"
	"log/slog"
	"slices"
	"strings"
)

// Store is the part of the engine the detector needs.
type Store interface {
	DocumentIDs() iter.Seq[int]
	GetWordFrequencies(id int) map[string]float64
	RemoveDocument(id int)
}

// FindDuplicates returns, in iteration order, every document whose word set
// was already seen on an earlier document. Word frequencies are ignored.
func FindDuplicates(store Store) []int {
	seen := make(map[string]struct{})
	duplicates := make([]int, 0)
	for id := range store.DocumentIDs() {
		key := wordSetKey(store.GetWordFrequencies(id))
		if _, ok := seen[key]; ok {
			duplicates = append(duplicates, id)
			continue
		}
		seen[key] = struct{}{}
	}
	return duplicates
}

// RemoveDuplicates removes every duplicate found by FindDuplicates and returns
// the removed ids.
func RemoveDuplicates(store Store, logger *slog.Logger) []int {
	duplicates := FindDuplicates(store)
	for _, id := range duplicates {
		logger.Info("found duplicate document id", "doc_id", id)
		store.RemoveDocument(id)
	}
	return duplicates
}

// wordSetKey joins the sorted words with a control character, which can not
// occur inside an indexed word.
func wordSetKey(freqs map[string]float64) string {
	words := make([]string, 0, len(freqs))
	for w := range freqs {
		words = append(words, w)
	}
	slices.Sort(words)
	return strings.Join(words, "\x00")
}
