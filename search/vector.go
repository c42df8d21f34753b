package search

import (
	"context"
	"time"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/embedding"
	"github.com/inspol/policyrag/metrics"
	"github.com/inspol/policyrag/schema"
	"github.com/inspol/policyrag/store"
)

// VectorSearcher embeds the query and runs a cosine-similarity search over
// chunk embeddings. Failures are logged and surface as an empty list; the
// hybrid caller keeps going with the other side.
type VectorSearcher struct {
	Embed embedding.Provider
	Store store.ChunkStore
	// Sink logs single-sided searches; nil when the hybrid facade owns the
	// log entry.
	Sink store.SearchLogSink
}

// Search returns ranked results above the threshold.
func (s *VectorSearcher) Search(ctx context.Context, query string, opts Options) []schema.SearchResult {
	start := time.Now()

	vec, err := s.Embed.Embed(ctx, query)
	if err != nil {
		logger.Errorf("vector search: embedding failed: %v", err)
		return nil
	}
	if embedding.IsZero(vec) {
		logger.Warnf("vector search: zero query embedding, skipping")
		return nil
	}

	chunks, err := s.Store.SearchVectors(ctx, vec, opts.Threshold, opts.Limit, store.Filters{
		DocumentType: opts.DocumentType,
		ClauseNumber: opts.ClauseNumber,
	})
	if err != nil {
		logger.Errorf("vector search: store query failed: %v", err)
		return nil
	}

	results := make([]schema.SearchResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, schema.ResultFromChunk(c, c.Rank))
	}

	metrics.ObserveRetriever("vector", start, len(results))
	if s.Sink != nil {
		top := 0.0
		if len(results) > 0 {
			top = results[0].Similarity
		}
		s.Sink.Log(ctx, store.SearchLogEntry{
			UserID:         opts.UserID,
			Query:          query,
			SearchType:     "vector",
			ResultsCount:   len(results),
			TopSimilarity:  top,
			ResponseTimeMS: time.Since(start).Milliseconds(),
		})
	}
	return results
}
