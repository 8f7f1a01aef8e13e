// Package ranker scores documents with TF-IDF and orders them for output.
package ranker

import (
	"math"
	"slices"
	"sort"
)

const (
	// MaxResultDocumentCount bounds every top-K result list.
	MaxResultDocumentCount = 5
	// RelevanceEpsilon is the distance under which two relevances tie.
	RelevanceEpsilon = 1e-6
)

type ScoredDoc struct {
	ID        int     `json:"id"`
	Relevance float64 `json:"relevance"`
	Rating    int     `json:"rating"`
}

// IDF returns ln(totalDocs / docFreq). docFreq must be positive.
func IDF(totalDocs int, docFreq int) float64 {
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// Less orders by relevance descending, treating relevances closer than
// RelevanceEpsilon as equal; ties go to the higher rating, then the lower id.
func Less(lhs, rhs ScoredDoc) bool {
	if math.Abs(lhs.Relevance-rhs.Relevance) < RelevanceEpsilon {
		if lhs.Rating != rhs.Rating {
			return lhs.Rating > rhs.Rating
		}
		return lhs.ID < rhs.ID
	}
	return lhs.Relevance > rhs.Relevance
}

// Rank turns accumulated relevances into at most limit ordered results.
// Entries are emitted in ascending id order before a stable sort, so the
// output does not depend on map iteration order. limit <= 0 means
// MaxResultDocumentCount.
func Rank(relevance map[int]float64, ratingOf func(id int) int, limit int) []ScoredDoc {
	if limit <= 0 {
		limit = MaxResultDocumentCount
	}
	ids := make([]int, 0, len(relevance))
	for id := range relevance {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	result := make([]ScoredDoc, 0, len(ids))
	for _, id := range ids {
		result = append(result, ScoredDoc{
			ID:        id,
			Relevance: relevance[id],
			Rating:    ratingOf(id),
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return Less(result[i], result[j])
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
