package judge

import (
	"context"
	"strings"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/llm"
	"github.com/inspol/policyrag/schema"
	"github.com/inspol/policyrag/structure"
	"github.com/inspol/policyrag/tokenizer"
)

// Judge decides whether the retrieved context is structurally and
// semantically complete, and which chunks to expand in which direction when
// it is not. The judge↔expander cycle is bounded by the expansion counter and
// a token ceiling.
type Judge struct {
	Analyzer *structure.Analyzer
	LLM      llm.Client
	Counter  tokenizer.Counter

	// MaxExpansions bounds the judge↔expander loop.
	MaxExpansions int
	// TokenCeiling forces sufficiency on the second and later passes.
	TokenCeiling int
	// MinRelevance is the keyword-match fraction below which an incomplete
	// chunk is not worth expanding.
	MinRelevance float64
}

// New builds a judge with the standard bounds.
func New(analyzer *structure.Analyzer, client llm.Client, counter tokenizer.Counter) *Judge {
	return &Judge{
		Analyzer:      analyzer,
		LLM:           client,
		Counter:       counter,
		MaxExpansions: 3,
		TokenCeiling:  10000,
		MinRelevance:  0.3,
	}
}

// Judge evaluates the state and sets ContextSufficient plus ChunksToExpand.
func (j *Judge) Judge(ctx context.Context, state *schema.RequestState) {
	results := state.SearchResults

	if len(results) == 0 {
		// Nothing to improve by expanding.
		state.ContextSufficient = schema.SufficiencySufficient
		state.ChunksToExpand = nil
		state.MergeTaskResult("context_judgement", map[string]any{
			"success":    true,
			"sufficient": true,
			"reason":     "no search results",
		})
		return
	}

	if state.ExpansionCount >= j.MaxExpansions {
		logger.Infof("judge: expansion limit reached (%d)", state.ExpansionCount)
		state.ContextSufficient = schema.SufficiencySufficient
		state.ChunksToExpand = nil
		state.MergeTaskResult("context_judgement", map[string]any{
			"success":         true,
			"sufficient":      true,
			"reason":          "expansion limit reached",
			"expansion_count": state.ExpansionCount,
		})
		return
	}

	currentTokens := j.contextTokens(results)
	if state.ExpansionCount >= 1 && currentTokens > j.TokenCeiling {
		logger.Warnf("judge: token ceiling exceeded (%d > %d)", currentTokens, j.TokenCeiling)
		state.ContextSufficient = schema.SufficiencySufficient
		state.ChunksToExpand = nil
		state.MergeTaskResult("context_judgement", map[string]any{
			"success":        true,
			"sufficient":     true,
			"reason":         "token ceiling reached",
			"current_tokens": currentTokens,
		})
		return
	}

	expandedTerms := j.expandedTerms(state)

	if state.ExpansionCount >= 1 {
		j.judgeLater(ctx, state, currentTokens)
		return
	}
	j.judgeFirst(ctx, state, expandedTerms)
}

// judgeFirst is the structural pass: analyzer findings gated by relevance,
// unioned with the LLM verdict.
func (j *Judge) judgeFirst(ctx context.Context, state *schema.RequestState, expandedTerms []string) {
	var needs []schema.ExpandRequest

	for _, result := range state.SearchResults {
		if result.Expanded() {
			logger.Debugf("judge: chunk %d already expanded, skipping", result.ChunkID)
			continue
		}

		completeness := j.Analyzer.CheckCompleteness(result.Content)
		if completeness.IsComplete {
			continue
		}
		if !j.relevant(expandedTerms, result.Content) {
			logger.Infof("judge: chunk %d incomplete but not germane, skipping", result.ChunkID)
			continue
		}

		needs = append(needs, schema.ExpandRequest{
			ChunkID:   result.ChunkID,
			Direction: refineDirection(completeness),
			Reasons:   completeness.Reasons,
		})
	}

	llmCheck := j.checkSufficiency(ctx, state.Query, state.SearchResults)
	for _, chunkID := range llmCheck.ChunksToExpand {
		if !containsChunk(needs, chunkID) {
			needs = append(needs, schema.ExpandRequest{
				ChunkID:   chunkID,
				Direction: schema.ExpandBoth,
				Reasons:   []string{"llm sufficiency check"},
			})
		}
	}

	sufficient := len(needs) == 0 && llmCheck.IsSufficient
	j.record(state, sufficient, needs, map[string]any{
		"llm_sufficient": llmCheck.IsSufficient,
		"missing_info":   llmCheck.MissingInfo,
	})
}

// judgeLater trusts only the LLM and expands at most one chunk forward per
// pass, as a convergence safeguard.
func (j *Judge) judgeLater(ctx context.Context, state *schema.RequestState, currentTokens int) {
	llmCheck := j.checkSufficiency(ctx, state.Query, state.SearchResults)

	var needs []schema.ExpandRequest
	if !llmCheck.IsSufficient && len(llmCheck.ChunksToExpand) > 0 {
		needs = append(needs, schema.ExpandRequest{
			ChunkID:   llmCheck.ChunksToExpand[0],
			Direction: schema.ExpandNext,
			Reasons:   []string{"llm sufficiency check"},
		})
	}

	j.record(state, llmCheck.IsSufficient, needs, map[string]any{
		"llm_sufficient": llmCheck.IsSufficient,
		"missing_info":   llmCheck.MissingInfo,
		"current_tokens": currentTokens,
	})
}

func (j *Judge) record(state *schema.RequestState, sufficient bool, needs []schema.ExpandRequest, extra map[string]any) {
	if sufficient {
		state.ContextSufficient = schema.SufficiencySufficient
		state.ChunksToExpand = nil
	} else {
		state.ContextSufficient = schema.SufficiencyInsufficient
		state.ChunksToExpand = needs
	}

	summary := map[string]any{
		"success":         true,
		"sufficient":      sufficient,
		"expand_needed":   len(needs),
		"expansion_count": state.ExpansionCount,
	}
	for k, v := range extra {
		summary[k] = v
	}
	state.MergeTaskResult("context_judgement", summary)

	logger.Infof("judge: sufficient=%v expand_needed=%d pass=%d", sufficient, len(needs), state.ExpansionCount)
}

// relevant applies the relevance gate: at least MinRelevance of the expanded
// terms must occur literally in the content.
func (j *Judge) relevant(expandedTerms []string, content string) bool {
	if len(expandedTerms) == 0 {
		return true
	}
	contentLower := strings.ToLower(content)
	matched := 0
	for _, term := range expandedTerms {
		if strings.Contains(contentLower, strings.ToLower(term)) {
			matched++
		}
	}
	return float64(matched)/float64(len(expandedTerms)) >= j.MinRelevance
}

// refineDirection narrows a both-sided verdict using the issue lists. When
// both ends are genuinely broken the tail wins: keyword-matching content
// tends to sit at the end of a chunk with an unrelated prefix. Documented
// policy, preserved as-is.
func refineDirection(c structure.Completeness) schema.ExpandDirection {
	if c.Direction != schema.ExpandBoth {
		return c.Direction
	}
	switch {
	case len(c.FrontIssues) > 0 && len(c.BackIssues) == 0:
		return schema.ExpandPrev
	case len(c.BackIssues) > 0 && len(c.FrontIssues) == 0:
		return schema.ExpandNext
	default:
		return schema.ExpandNext
	}
}

func (j *Judge) contextTokens(results []schema.SearchResult) int {
	total := 0
	for _, r := range results {
		if r.TokenCount > 0 {
			total += r.TokenCount
			continue
		}
		total += j.Counter.Count(r.Content)
	}
	return total
}

func (j *Judge) expandedTerms(state *schema.RequestState) []string {
	if state.Preprocessed != nil && len(state.Preprocessed.ExpandedTerms) > 0 {
		return state.Preprocessed.ExpandedTerms
	}
	// Fallback: naive split of the raw query.
	var terms []string
	for _, w := range strings.Fields(state.Query) {
		if len([]rune(w)) >= 2 {
			terms = append(terms, w)
		}
	}
	return terms
}

func containsChunk(needs []schema.ExpandRequest, chunkID int64) bool {
	for _, n := range needs {
		if n.ChunkID == chunkID {
			return true
		}
	}
	return false
}
