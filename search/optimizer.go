package search

import (
	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/schema"
	"github.com/inspol/policyrag/tokenizer"
)

// OptimizeContext greedily fills the token budget in the given order and
// stops at the first result that would overflow. Ordering is preserved.
func OptimizeContext(results []schema.SearchResult, maxTokens int, counter tokenizer.Counter) ([]schema.SearchResult, int) {
	included := make([]schema.SearchResult, 0, len(results))
	total := 0

	for _, r := range results {
		tokens := r.TokenCount
		if tokens <= 0 {
			tokens = counter.Count(r.Content)
		}
		if total+tokens > maxTokens {
			logger.Infof("context optimizer: budget reached at %d/%d tokens (next chunk %d tokens)",
				total, maxTokens, tokens)
			break
		}
		included = append(included, r)
		total += tokens
	}
	return included, total
}
