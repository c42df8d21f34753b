package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/inspol/policyrag/answer"
	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/expand"
	"github.com/inspol/policyrag/judge"
	"github.com/inspol/policyrag/metrics"
	"github.com/inspol/policyrag/preprocess"
	"github.com/inspol/policyrag/schema"
	"github.com/inspol/policyrag/search"
)

// NodeID identifies one agent in the traversal. The judge↔expander cycle is
// a controlled loop guarded by the state's expansion counter, not a
// data-structural one.
type NodeID int

const (
	NodeRouter NodeID = iota
	NodeSearch
	NodeJudge
	NodeExpand
	NodeAnswer
	NodeEnd
)

func (n NodeID) String() string {
	switch n {
	case NodeRouter:
		return "router"
	case NodeSearch:
		return "search"
	case NodeJudge:
		return "context_judgement"
	case NodeExpand:
		return "chunk_expansion"
	case NodeAnswer:
		return "answer"
	case NodeEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Engine wires the agents and drives one traversal per request.
type Engine struct {
	Router       Router
	Preprocessor *preprocess.Preprocessor
	Hybrid       *search.HybridSearcher
	Judge        *judge.Judge
	Expander     *expand.Expander
	Answerer     *answer.Answerer

	// TopK is the result count requested from hybrid search.
	TopK int
	// Threshold and ClauseThreshold are the vector similarity floors; the
	// clause variant applies when the query pins a clause number, because the
	// filter already constrains recall.
	Threshold       float64
	ClauseThreshold float64
}

// Run executes the graph for one query. The request never crashes the
// caller: any panic surfaces as a top-level error record on the state.
func (e *Engine) Run(ctx context.Context, query string) (state *schema.RequestState) {
	state = schema.NewRequestState(uuid.NewString(), query)

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("graph: panic in traversal: %v", r)
			state.Err = fmt.Sprintf("internal error: %v", r)
			state.FinalAnswer = "시스템 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
		}
		metrics.ObserveExpansionRounds(state.ExpansionCount)
	}()

	node := NodeRouter
	for node != NodeEnd {
		if err := ctx.Err(); err != nil {
			state.Err = err.Error()
			return state
		}
		logger.Debugf("graph: visiting %s", node)
		node = e.step(ctx, node, state)
	}
	return state
}

// step executes one node and returns the next one; the transition function
// is total over the node enum.
func (e *Engine) step(ctx context.Context, node NodeID, state *schema.RequestState) NodeID {
	switch node {
	case NodeRouter:
		switch e.Router.Route(state) {
		case schema.TaskUpload:
			state.FinalAnswer = "문서 업로드는 관리 도구에서 지원됩니다."
			state.MergeTaskResult("router", map[string]any{"task_type": "upload", "handled": false})
			return NodeEnd
		case schema.TaskManage:
			state.FinalAnswer = "문서 관리는 관리 도구에서 지원됩니다."
			state.MergeTaskResult("router", map[string]any{"task_type": "manage", "handled": false})
			return NodeEnd
		default:
			return NodeSearch
		}

	case NodeSearch:
		e.runSearch(ctx, state)
		return NodeJudge

	case NodeJudge:
		e.Judge.Judge(ctx, state)
		if state.ContextSufficient == schema.SufficiencyInsufficient && len(state.ChunksToExpand) > 0 {
			return NodeExpand
		}
		return NodeAnswer

	case NodeExpand:
		e.Expander.Expand(ctx, state)
		return NodeJudge

	case NodeAnswer:
		e.Answerer.Answer(ctx, state)
		return NodeEnd

	default:
		return NodeEnd
	}
}

// runSearch is the search agent: preprocess, short-circuit incomplete
// queries, run hybrid retrieval with clause-aware thresholding, then rerank.
func (e *Engine) runSearch(ctx context.Context, state *schema.RequestState) {
	if state.Query == "" {
		state.Err = "검색 쿼리가 비어있습니다."
		state.MergeTaskResult("search", map[string]any{
			"success": false,
			"error":   state.Err,
		})
		return
	}

	preprocessed := e.Preprocessor.Preprocess(state.Query)
	state.Preprocessed = &preprocessed

	if !preprocessed.IsComplete {
		logger.Infof("graph: incomplete query, returning suggestions")
		state.Suggestions = preprocessed.Suggestions
		state.MergeTaskResult("search", map[string]any{
			"success":          false,
			"incomplete_query": true,
			"suggestions":      preprocessed.Suggestions,
		})
		return
	}

	threshold := e.Threshold
	if preprocessed.ClauseNumber != "" {
		threshold = e.ClauseThreshold
		logger.Infof("graph: clause filter %s active, threshold relaxed to %.1f",
			preprocessed.ClauseNumber, threshold)
	}

	results, totalTokens := e.Hybrid.Search(ctx, preprocessed.Standardized, search.Options{
		Threshold:    threshold,
		Limit:        e.TopK,
		ClauseNumber: preprocessed.ClauseNumber,
		UserID:       state.UserID,
	})

	if len(results) > 1 {
		results = search.Rerank(results, preprocessed.ExpandedTerms)
	}

	state.SearchResults = results
	state.TotalTokens = totalTokens
	state.MergeTaskResult("search", map[string]any{
		"success":      true,
		"count":        len(results),
		"total_tokens": totalTokens,
		"search_type":  "hybrid",
		"preprocessing": map[string]any{
			"original_query":     preprocessed.Original,
			"standardized_query": preprocessed.Standardized,
			"clause_number":      preprocessed.ClauseNumber,
			"expanded_terms":     preprocessed.ExpandedTerms,
		},
	})
}
