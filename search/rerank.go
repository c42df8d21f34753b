package search

import (
	"sort"
	"strings"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/schema"
)

// Keyword-match re-ranking weights. Literal hits are promoted over
// semantically close but literally off-topic chunks, which defeats the
// lost-in-the-middle failure.
const (
	exactMatchWeight    = 0.3
	partialMatchWeight  = 0.1
	positionBonusWeight = 0.05

	// frontWindow is the character span counted for the position bonus.
	frontWindow = 200
	// partialMinLen is the minimum keyword length for half-keyword matching.
	partialMinLen = 4
)

// Rerank re-scores results by literal keyword presence and reorders them.
// The original rank is preserved on each record for observability; the
// similarity field itself is left untouched.
func Rerank(results []schema.SearchResult, keywords []string) []schema.SearchResult {
	if len(results) < 2 || len(keywords) == 0 {
		return results
	}

	reranked := make([]schema.SearchResult, len(results))
	copy(reranked, results)

	for i := range reranked {
		exactScore := matchScore(reranked[i].Content, keywords)
		finalScore := reranked[i].Similarity + exactScore
		reranked[i].SetMetadata("rerank_exact_score", exactScore)
		reranked[i].SetMetadata("rerank_final_score", finalScore)
		reranked[i].SetMetadata("original_rank", i+1)
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return metaFloat(reranked[i], "rerank_final_score") > metaFloat(reranked[j], "rerank_final_score")
	})

	if top := reranked[0]; metaFloat(top, "original_rank") != 1 {
		logger.Infof("rerank: chunk %d promoted to top (was rank %v)",
			top.ChunkID, top.Metadata["original_rank"])
	}
	return reranked
}

// matchScore combines exact, partial, and front-position keyword ratios.
func matchScore(content string, keywords []string) float64 {
	if content == "" || len(keywords) == 0 {
		return 0
	}

	contentLower := strings.ToLower(content)
	runes := []rune(contentLower)
	front := contentLower
	if len(runes) > frontWindow {
		front = string(runes[:frontWindow])
	}

	exact := 0
	frontHits := 0
	partial := 0.0

	for _, kw := range keywords {
		kwLower := strings.ToLower(kw)
		if strings.Contains(contentLower, kwLower) {
			exact++
			if strings.Contains(front, kwLower) {
				frontHits++
			}
			continue
		}
		kwRunes := []rune(kwLower)
		if len(kwRunes) >= partialMinLen {
			mid := len(kwRunes) / 2
			if strings.Contains(contentLower, string(kwRunes[:mid])) ||
				strings.Contains(contentLower, string(kwRunes[mid:])) {
				partial += 0.5
			}
		}
	}

	total := float64(len(keywords))
	exactRatio := float64(exact) / total
	partialRatio := partial / total
	frontRatio := 0.0
	if exact > 0 {
		frontRatio = float64(frontHits) / total
	}

	return exactRatio*exactMatchWeight + partialRatio*partialMatchWeight + frontRatio*positionBonusWeight
}

func metaFloat(r schema.SearchResult, key string) float64 {
	if r.Metadata == nil {
		return 0
	}
	switch v := r.Metadata[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
