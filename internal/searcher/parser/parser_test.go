package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/errors"
)

type stopSet map[string]struct{}

func (s stopSet) IsStopWord(word string) bool {
	_, ok := s[word]
	return ok
}

func stops(words ...string) stopSet {
	s := make(stopSet)
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func TestParseWord(t *testing.T) {
	sw := stops("and")

	w, err := ParseWord("cat", sw)
	require.NoError(t, err)
	assert.Equal(t, Word{Text: "cat"}, w)

	w, err = ParseWord("-cat", sw)
	require.NoError(t, err)
	assert.Equal(t, Word{Text: "cat", Minus: true}, w)

	w, err = ParseWord("-and", sw)
	require.NoError(t, err)
	assert.Equal(t, Word{Text: "and", Minus: true, Stop: true}, w, "marker is stripped before stop-word lookup")

	w, err = ParseWord("c-a-t", sw)
	require.NoError(t, err)
	assert.Equal(t, "c-a-t", w.Text)
}

func TestParseWordInvalid(t *testing.T) {
	for _, token := range []string{"", "-", "--cat", "---", "ca\x1bt", "-ca\x02t"} {
		t.Run(token, func(t *testing.T) {
			_, err := ParseWord(token, stops())
			assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
		})
	}
}

func TestParseSortsAndDeduplicates(t *testing.T) {
	q, err := Parse("  white cat -collar cat and -tail white -collar ", stops("and"))
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "white"}, q.PlusWords)
	assert.Equal(t, []string{"collar", "tail"}, q.MinusWords)
}

func TestParseUnsortedKeepsOrder(t *testing.T) {
	q, err := ParseUnsorted("white cat -collar cat -and", stops("and"))
	require.NoError(t, err)
	assert.Equal(t, []string{"white", "cat", "cat"}, q.PlusWords)
	assert.Equal(t, []string{"collar"}, q.MinusWords)
}

func TestParseFailsWholeQuery(t *testing.T) {
	for _, raw := range []string{"cat --dog", "cat -", "fluffy c\x10at"} {
		q, err := Parse(raw, stops())
		assert.ErrorIs(t, err, apperrors.ErrInvalidQuery, raw)
		assert.Nil(t, q)
	}
}

func TestParseEmpty(t *testing.T) {
	q, err := Parse("   ", stops())
	require.NoError(t, err)
	assert.Empty(t, q.PlusWords)
	assert.Empty(t, q.MinusWords)
}
