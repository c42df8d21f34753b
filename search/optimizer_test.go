package search

import (
	"testing"

	"github.com/inspol/policyrag/schema"
)

type runeCounter struct{}

func (runeCounter) Count(text string) int { return len([]rune(text)) }

func TestOptimizeContext_BudgetInvariant(t *testing.T) {
	results := []schema.SearchResult{
		{ChunkID: 1, TokenCount: 400},
		{ChunkID: 2, TokenCount: 500},
		{ChunkID: 3, TokenCount: 300},
	}

	out, total := OptimizeContext(results, 1000, runeCounter{})
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	if total != 900 {
		t.Fatalf("total = %d, want 900", total)
	}
	if out[0].ChunkID != 1 || out[1].ChunkID != 2 {
		t.Fatalf("ordering not preserved: %+v", out)
	}
}

func TestOptimizeContext_StopsAtFirstOverflow(t *testing.T) {
	// The second chunk overflows; the smaller third one is not pulled forward.
	results := []schema.SearchResult{
		{ChunkID: 1, TokenCount: 400},
		{ChunkID: 2, TokenCount: 700},
		{ChunkID: 3, TokenCount: 100},
	}
	out, total := OptimizeContext(results, 1000, runeCounter{})
	if len(out) != 1 || total != 400 {
		t.Fatalf("expected greedy stop after first chunk, got %d results / %d tokens", len(out), total)
	}
}

func TestOptimizeContext_Idempotent(t *testing.T) {
	results := []schema.SearchResult{
		{ChunkID: 1, TokenCount: 100},
		{ChunkID: 2, TokenCount: 100},
	}
	once, totalOnce := OptimizeContext(results, 500, runeCounter{})
	twice, totalTwice := OptimizeContext(once, 500, runeCounter{})
	if len(once) != len(twice) || totalOnce != totalTwice {
		t.Fatalf("optimizer not idempotent: %d/%d vs %d/%d", len(once), totalOnce, len(twice), totalTwice)
	}
}

func TestOptimizeContext_CountsContentWhenTokenCountMissing(t *testing.T) {
	results := []schema.SearchResult{{ChunkID: 1, Content: "abcde"}}
	out, total := OptimizeContext(results, 10, runeCounter{})
	if len(out) != 1 || total != 5 {
		t.Fatalf("expected counted content, got %d results / %d tokens", len(out), total)
	}
}
