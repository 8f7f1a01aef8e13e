// Package tokenizer splits document and query text into words. Words are
// maximal runs of non-space bytes; only the ASCII space separates them, and
// any byte below 0x20 makes a word invalid rather than acting as a separator.
package tokenizer

import (
	"iter"
	"strings"
)

const separator = ' '

// Words returns a lazy sequence of the words in text, left to right. Every
// range over the returned sequence scans text again from the start. The
// yielded strings are substrings of text and share its memory.
func Words(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := text
		for {
			rest = strings.TrimLeft(rest, " ")
			if rest == "" {
				return
			}
			end := strings.IndexByte(rest, separator)
			if end < 0 {
				end = len(rest)
			}
			if !yield(rest[:end]) {
				return
			}
			rest = rest[end:]
		}
	}
}

// SplitIntoWords collects Words(text) into a slice.
func SplitIntoWords(text string) []string {
	words := make([]string, 0, strings.Count(text, " ")+1)
	for word := range Words(text) {
		words = append(words, word)
	}
	return words
}

// IsValidWord reports whether word is free of control characters.
func IsValidWord(word string) bool {
	for i := 0; i < len(word); i++ {
		if word[i] < separator {
			return false
		}
	}
	return true
}
