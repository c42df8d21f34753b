package fusion

import (
	"math"
	"testing"

	"github.com/inspol/policyrag/schema"
)

func results(ids ...int64) []schema.SearchResult {
	out := make([]schema.SearchResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, schema.SearchResult{ChunkID: id})
	}
	return out
}

func TestRRFScore_DuplicatesSumContributions(t *testing.T) {
	vec := results(1, 2)
	key := results(2, 3)

	scored := RRFScore([][]schema.SearchResult{vec, key}, 60)
	if len(scored) != 3 {
		t.Fatalf("expected 3 fused chunks, got %d", len(scored))
	}

	// Chunk 2 is endorsed by both retrievers: 1/62 + 1/61.
	if scored[0].ChunkID != 2 {
		t.Fatalf("expected chunk 2 on top, got %d", scored[0].ChunkID)
	}
	want := 1.0/62 + 1.0/61
	if math.Abs(scored[0].Score-want) > 1e-12 {
		t.Fatalf("chunk 2 score = %v, want %v", scored[0].Score, want)
	}

	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[i-1].Score {
			t.Fatalf("scores not descending at %d", i)
		}
	}
}

func TestRRFScore_SymmetricForDisjointLists(t *testing.T) {
	a := results(1, 2)
	b := results(3, 4)

	forward := RRFScore([][]schema.SearchResult{a, b}, 60)
	backward := RRFScore([][]schema.SearchResult{b, a}, 60)

	scoresOf := func(in []ScoredChunk) map[int64]float64 {
		m := make(map[int64]float64, len(in))
		for _, s := range in {
			m[s.ChunkID] = s.Score
		}
		return m
	}
	fw, bw := scoresOf(forward), scoresOf(backward)
	for id, score := range fw {
		if math.Abs(bw[id]-score) > 1e-12 {
			t.Fatalf("chunk %d score differs across list order: %v vs %v", id, score, bw[id])
		}
	}
}

func TestRRFScore_RankFormula(t *testing.T) {
	scored := RRFScore([][]schema.SearchResult{results(7, 8, 9)}, 60)

	// rank r (0-indexed) contributes 1/(k + r + 1).
	wants := []float64{1.0 / 61, 1.0 / 62, 1.0 / 63}
	for i, want := range wants {
		if math.Abs(scored[i].Score-want) > 1e-12 {
			t.Fatalf("rank %d score = %v, want %v", i, scored[i].Score, want)
		}
	}
}

func TestRRFScore_DefaultKAndEmpty(t *testing.T) {
	if got := RRFScore(nil, 0); len(got) != 0 {
		t.Fatalf("expected empty output, got %v", got)
	}

	scored := RRFScore([][]schema.SearchResult{results(1)}, 0)
	if math.Abs(scored[0].Score-1.0/61) > 1e-12 {
		t.Fatalf("default k not applied: %v", scored[0].Score)
	}
}
