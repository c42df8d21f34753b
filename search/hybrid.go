package search

import (
	"context"
	"sync"
	"time"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/fusion"
	"github.com/inspol/policyrag/metrics"
	"github.com/inspol/policyrag/schema"
	"github.com/inspol/policyrag/store"
	"github.com/inspol/policyrag/tokenizer"
)

// HybridSearcher fuses dense-vector and lexical retrieval. Both sides run
// concurrently on their own pooled connections; either side failing or coming
// back empty degrades to the other.
type HybridSearcher struct {
	Vector  *VectorSearcher
	Keyword *KeywordSearcher
	Counter tokenizer.Counter
	Sink    store.SearchLogSink

	// RRFK is the fusion constant; zero means the standard 60.
	RRFK int
	// MaxContextTokens is the context optimizer budget.
	MaxContextTokens int
}

// Search runs both retrievers with limit 2·L, RRF-fuses, deduplicates by
// reusing already-fetched records, fills the token budget, and logs the
// event. Returns the results and their total token count.
func (h *HybridSearcher) Search(ctx context.Context, query string, opts Options) ([]schema.SearchResult, int) {
	start := time.Now()
	fetchOpts := opts
	fetchOpts.Limit = opts.Limit * 2

	var (
		wg         sync.WaitGroup
		vecResults []schema.SearchResult
		keyResults []schema.SearchResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		vecResults = h.Vector.Search(ctx, query, fetchOpts)
	}()
	go func() {
		defer wg.Done()
		keyResults = h.Keyword.Search(ctx, query, fetchOpts)
	}()
	wg.Wait()

	logger.Infof("hybrid search: vector=%d keyword=%d for %q", len(vecResults), len(keyResults), query)

	if len(vecResults) == 0 && len(keyResults) == 0 {
		logger.Warnf("hybrid search: both sides empty for %q", query)
		h.logEvent(ctx, query, opts, nil, start)
		return nil, 0
	}

	fused := fusion.RRFScore([][]schema.SearchResult{vecResults, keyResults}, h.RRFK)
	metrics.ObserveFusion(2)

	// Reuse already-fetched records rather than re-querying storage; the RRF
	// score overwrites the per-retriever similarity.
	cache := make(map[int64]schema.SearchResult, len(vecResults)+len(keyResults))
	for _, r := range vecResults {
		if _, ok := cache[r.ChunkID]; !ok {
			cache[r.ChunkID] = r
		}
	}
	for _, r := range keyResults {
		if _, ok := cache[r.ChunkID]; !ok {
			cache[r.ChunkID] = r
		}
	}

	merged := make([]schema.SearchResult, 0, opts.Limit)
	for _, scored := range fused {
		if len(merged) >= opts.Limit {
			break
		}
		if r, ok := cache[scored.ChunkID]; ok {
			r.Similarity = scored.Score
			merged = append(merged, r)
		}
	}

	maxTokens := h.MaxContextTokens
	if maxTokens <= 0 {
		maxTokens = 20000
	}
	optimized, totalTokens := OptimizeContext(merged, maxTokens, h.Counter)

	h.logEvent(ctx, query, opts, optimized, start)
	logger.Infof("hybrid search: %d results, %d tokens, %dms",
		len(optimized), totalTokens, time.Since(start).Milliseconds())

	return optimized, totalTokens
}

func (h *HybridSearcher) logEvent(ctx context.Context, query string, opts Options, results []schema.SearchResult, start time.Time) {
	if h.Sink == nil {
		return
	}
	top := 0.0
	if len(results) > 0 {
		top = results[0].Similarity
	}
	h.Sink.Log(ctx, store.SearchLogEntry{
		UserID:         opts.UserID,
		Query:          query,
		SearchType:     "hybrid",
		ResultsCount:   len(results),
		TopSimilarity:  top,
		ResponseTimeMS: time.Since(start).Milliseconds(),
	})
}
