package fusion

import (
	"sort"

	"github.com/inspol/policyrag/schema"
)

// DefaultK is the standard RRF constant.
const DefaultK = 60

// ScoredChunk pairs a chunk id with its fused score.
type ScoredChunk struct {
	ChunkID int64
	Score   float64
}

// RRFScore computes Reciprocal Rank Fusion over ranked result lists:
// score[id] += 1/(k + rank + 1) with rank 0-indexed. A chunk appearing in
// several lists sums its contributions; that is the "endorsed by both
// retrievers" signal and is intentional. Output is sorted descending with
// chunk id as the deterministic tiebreak.
func RRFScore(lists [][]schema.SearchResult, k int) []ScoredChunk {
	if k <= 0 {
		k = DefaultK
	}

	scores := make(map[int64]float64)
	order := make([]int64, 0)

	for _, list := range lists {
		for rank, item := range list {
			if _, ok := scores[item.ChunkID]; !ok {
				order = append(order, item.ChunkID)
			}
			scores[item.ChunkID] += 1.0 / float64(k+rank+1)
		}
	}

	out := make([]ScoredChunk, 0, len(order))
	for _, id := range order {
		out = append(out, ScoredChunk{ChunkID: id, Score: scores[id]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}
