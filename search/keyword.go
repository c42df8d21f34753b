package search

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/keyword"
	"github.com/inspol/policyrag/metrics"
	"github.com/inspol/policyrag/schema"
	"github.com/inspol/policyrag/store"
)

// KeywordSearcher runs Postgres full-text search with AND semantics: every
// extracted noun must match.
type KeywordSearcher struct {
	Extractor keyword.Extractor
	Store     store.ChunkStore
	Sink      store.SearchLogSink
}

var keywordCleanRe = regexp.MustCompile(`[^0-9A-Za-z가-힣\s]`)

// Search returns ts_rank-ordered results, with the rank mapped into the
// similarity slot.
func (s *KeywordSearcher) Search(ctx context.Context, query string, opts Options) []schema.SearchResult {
	start := time.Now()

	clean := strings.TrimSpace(keywordCleanRe.ReplaceAllString(query, " "))
	if clean == "" {
		return nil
	}

	terms := s.Extractor.Extract(clean)
	if len(terms) == 0 {
		logger.Debugf("keyword search: no terms extracted from %q", query)
		return nil
	}
	tsquery := strings.Join(terms, " & ")

	chunks, err := s.Store.FTSSearch(ctx, tsquery, opts.Limit, store.Filters{
		DocumentType: opts.DocumentType,
		ClauseNumber: opts.ClauseNumber,
	})
	if err != nil {
		logger.Errorf("keyword search: fts query failed: %v", err)
		return nil
	}

	results := make([]schema.SearchResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, schema.ResultFromChunk(c, c.Rank))
	}

	metrics.ObserveRetriever("keyword", start, len(results))
	if s.Sink != nil {
		top := 0.0
		if len(results) > 0 {
			top = results[0].Similarity
		}
		s.Sink.Log(ctx, store.SearchLogEntry{
			UserID:         opts.UserID,
			Query:          query,
			SearchType:     "keyword",
			ResultsCount:   len(results),
			TopSimilarity:  top,
			ResponseTimeMS: time.Since(start).Milliseconds(),
		})
	}
	return results
}
