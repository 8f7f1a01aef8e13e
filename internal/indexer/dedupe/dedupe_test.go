package dedupe

import (
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
)

func TestRemoveDuplicates(t *testing.T) {
	engine, err := indexer.NewEngine("and with")
	require.NoError(t, err)

	docs := []struct {
		id   int
		text string
	}{
		{1, "funny pet and nasty rat"},
		{2, "funny pet with curly hair"},
		{3, "funny pet with curly hair"},
		{4, "funny pet and curly hair"},
		{5, "funny funny pet and nasty nasty rat"},
		{6, "funny pet and not very nasty rat"},
		{7, "very nasty rat and not very funny pet"},
		{8, "pet with rat and rat and rat"},
		{9, "nasty rat with curly hair"},
	}
	for _, d := range docs {
		require.NoError(t, engine.AddDocument(d.id, d.text, index.StatusActual, []int{1, 2}))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	removed := RemoveDuplicates(engine, logger)

	assert.Equal(t, []int{3, 4, 5, 7}, removed)
	assert.Equal(t, 5, engine.DocumentCount())
	assert.Equal(t, []int{1, 2, 6, 8, 9}, slices.Collect(engine.DocumentIDs()))
	assert.Empty(t, FindDuplicates(engine))
}

func TestWordSetKeyIgnoresFrequencies(t *testing.T) {
	a := wordSetKey(map[string]float64{"a": 0.5, "b": 0.5})
	b := wordSetKey(map[string]float64{"b": 0.1, "a": 0.9})
	assert.Equal(t, a, b)
	assert.NotEqual(t, wordSetKey(map[string]float64{"ab": 1}), a)
}
