// Package parser turns a raw query string into plus words, which score
// documents, and minus words, which veto them. A word prefixed with a single
// '-' is a minus word.
package parser

import (
	"fmt"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/errors"
)

const minusMarker = '-'

// StopWords reports whether a word is excluded from querying.
type StopWords interface {
	IsStopWord(word string) bool
}

type Word struct {
	Text  string
	Minus bool
	Stop  bool
}

type Query struct {
	PlusWords  []string
	MinusWords []string
	RawQuery   string
}

// ParseWord classifies a single query token.
func ParseWord(token string, stopWords StopWords) (Word, error) {
	if token == "" {
		return Word{}, fmt.Errorf("query word is empty: %w", apperrors.ErrInvalidQuery)
	}
	text := token
	minus := false
	if text[0] == minusMarker {
		minus = true
		text = text[1:]
	}
	if text == "" || text[0] == minusMarker || !tokenizer.IsValidWord(text) {
		return Word{}, fmt.Errorf("query word %q is invalid: %w", token, apperrors.ErrInvalidQuery)
	}
	return Word{
		Text:  text,
		Minus: minus,
		Stop:  stopWords.IsStopWord(text),
	}, nil
}

// Parse parses raw and returns each word set sorted and without duplicates.
func Parse(raw string, stopWords StopWords) (*Query, error) {
	q, err := ParseUnsorted(raw, stopWords)
	if err != nil {
		return nil, err
	}
	for _, words := range []*[]string{&q.PlusWords, &q.MinusWords} {
		slices.Sort(*words)
		*words = slices.Compact(*words)
	}
	return q, nil
}

// ParseUnsorted parses raw keeping the words in query order, duplicates
// included. A single malformed word fails the whole query.
func ParseUnsorted(raw string, stopWords StopWords) (*Query, error) {
	q := &Query{
		PlusWords:  make([]string, 0),
		MinusWords: make([]string, 0),
		RawQuery:   raw,
	}
	for token := range tokenizer.Words(raw) {
		word, err := ParseWord(token, stopWords)
		if err != nil {
			return nil, err
		}
		if word.Stop {
			continue
		}
		if word.Minus {
			q.MinusWords = append(q.MinusWords, word.Text)
		} else {
			q.PlusWords = append(q.PlusWords, word.Text)
		}
	}
	return q, nil
}
