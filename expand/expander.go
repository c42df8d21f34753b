package expand

import (
	"context"
	"regexp"
	"strings"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/schema"
	"github.com/inspol/policyrag/store"
	"github.com/inspol/policyrag/tokenizer"
)

// Expander replaces incomplete chunks with merged content spanning their
// neighbors, under token and section-boundary constraints.
type Expander struct {
	Store   store.ChunkStore
	Counter tokenizer.Counter

	// MaxMergeTokens is the expander's own context ceiling.
	MaxMergeTokens int
	// AdjacentPerSide bounds how many neighbors are fetched per direction.
	AdjacentPerSide int
}

var newSectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^제\d+조`),
	regexp.MustCompile(`^제\d+장`),
	regexp.MustCompile(`^제\d+절`),
	regexp.MustCompile(`^\d+\.\s*[가-힣]+`),
}

type merged struct {
	content        string
	includedChunks []int64
	totalTokens    int
	truncated      bool
}

// Expand rewrites the state's search results: every requested pivot is
// replaced by its merged span, untouched results pass through, and trailing
// results are dropped once the global budget is hit. The expansion counter is
// incremented and the request list cleared so the judge re-evaluates the new
// context.
func (e *Expander) Expand(ctx context.Context, state *schema.RequestState) {
	requests := state.ChunksToExpand

	if len(requests) == 0 {
		logger.Warnf("expand: no chunks requested")
		state.ExpansionCount++
		state.MergeTaskResult("chunk_expansion", map[string]any{
			"success":  true,
			"expanded": false,
			"reason":   "no expansion candidates",
		})
		return
	}

	maxTokens := e.MaxMergeTokens
	if maxTokens <= 0 {
		maxTokens = 15000
	}

	expandMap := make(map[int64]schema.ExpandDirection, len(requests))
	for _, req := range requests {
		dir := req.Direction
		if dir == "" {
			dir = schema.ExpandBoth
		}
		expandMap[req.ChunkID] = dir
	}

	perSide := e.AdjacentPerSide
	if perSide <= 0 {
		perSide = 2
	}

	out := make([]schema.SearchResult, 0, len(state.SearchResults))
	expandedIDs := make([]int64, 0, len(requests))
	totalTokens := 0

	for _, result := range state.SearchResults {
		direction, wantsExpand := expandMap[result.ChunkID]
		if !wantsExpand {
			tokens := e.tokensOf(result.Content, result.TokenCount)
			if totalTokens+tokens > maxTokens {
				logger.Warnf("expand: budget reached at %d/%d tokens, dropping trailing chunk %d",
					totalTokens, maxTokens, result.ChunkID)
				break
			}
			out = append(out, result)
			totalTokens += tokens
			continue
		}

		if totalTokens >= maxTokens {
			logger.Warnf("expand: budget exhausted, keeping chunk %d unexpanded", result.ChunkID)
			out = append(out, result)
			continue
		}

		adj, err := e.Store.GetAdjacent(ctx, result.ChunkID, direction, perSide)
		if err != nil {
			logger.Errorf("expand: adjacent lookup for chunk %d failed: %v", result.ChunkID, err)
			out = append(out, result)
			continue
		}

		m := e.merge(result, adj.Prev, adj.Next, maxTokens-totalTokens)
		if totalTokens+m.totalTokens > maxTokens {
			// Merged span no longer fits; keep the original when it does.
			tokens := e.tokensOf(result.Content, result.TokenCount)
			if totalTokens+tokens <= maxTokens {
				out = append(out, result)
				totalTokens += tokens
			}
			continue
		}

		expanded := result
		expanded.Content = m.content
		expanded.TokenCount = m.totalTokens
		expanded.SetMetadata("expanded", true)
		expanded.SetMetadata("included_chunks", m.includedChunks)
		expanded.SetMetadata("total_tokens", m.totalTokens)
		expanded.SetMetadata("truncated", m.truncated)

		out = append(out, expanded)
		expandedIDs = append(expandedIDs, result.ChunkID)
		totalTokens += m.totalTokens

		logger.Infof("expand: chunk %d merged %d chunks (%d tokens, truncated=%v)",
			result.ChunkID, len(m.includedChunks), m.totalTokens, m.truncated)
	}

	state.SearchResults = out
	state.TotalTokens = totalTokens
	state.ExpansionCount++
	state.ChunksToExpand = nil
	state.MergeTaskResult("chunk_expansion", map[string]any{
		"success":            true,
		"expanded":           len(expandedIDs) > 0,
		"expanded_chunk_ids": expandedIDs,
		"expansion_count":    state.ExpansionCount,
	})
}

// merge assembles prev + pivot + next under the budget. The pivot is always
// included; extension alternates forward then backward, and forward extension
// stops at a new-section boundary.
func (e *Expander) merge(primary schema.SearchResult, prev, next []schema.AnnotatedChunk, maxTokens int) merged {
	type piece struct {
		chunkID int64
		content string
		tokens  int
	}

	pieces := make([]piece, 0, len(prev)+1+len(next))
	for _, c := range prev {
		pieces = append(pieces, piece{c.ChunkID, c.Content, e.tokensOf(c.Content, c.TokenCount)})
	}
	primaryIdx := len(pieces)
	pieces = append(pieces, piece{primary.ChunkID, primary.Content, e.tokensOf(primary.Content, primary.TokenCount)})
	for _, c := range next {
		pieces = append(pieces, piece{c.ChunkID, c.Content, e.tokensOf(c.Content, c.TokenCount)})
	}

	contents := []string{pieces[primaryIdx].content}
	included := []int64{pieces[primaryIdx].chunkID}
	total := pieces[primaryIdx].tokens
	truncated := total > maxTokens

	prevIdx := primaryIdx - 1
	nextIdx := primaryIdx + 1
	forwardOpen := true

	for (prevIdx >= 0 || (forwardOpen && nextIdx < len(pieces))) && !truncated {
		if forwardOpen && nextIdx < len(pieces) {
			p := pieces[nextIdx]
			if e.startsNewSection(p.content, primary.Content) {
				logger.Debugf("expand: chunk %d starts a new section, stopping forward merge", p.chunkID)
				forwardOpen = false
			} else if total+p.tokens <= maxTokens {
				contents = append(contents, p.content)
				included = append(included, p.chunkID)
				total += p.tokens
				nextIdx++
			} else {
				truncated = true
				break
			}
		}

		if prevIdx >= 0 {
			p := pieces[prevIdx]
			if total+p.tokens <= maxTokens {
				contents = append([]string{p.content}, contents...)
				included = append([]int64{p.chunkID}, included...)
				total += p.tokens
				prevIdx--
			} else {
				truncated = true
				break
			}
		}
	}

	return merged{
		content:        strings.Join(contents, "\n\n"),
		includedChunks: included,
		totalTokens:    total,
		truncated:      truncated,
	}
}

// startsNewSection reports whether a candidate's first line opens a new
// article/chapter/section or a new table. A table row continues the pivot's
// table when the pivot already contains one.
func (e *Expander) startsNewSection(content, primaryContent string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	firstLine := strings.TrimSpace(strings.SplitN(trimmed, "\n", 2)[0])

	if strings.HasPrefix(firstLine, "|") {
		return !strings.Contains(primaryContent, "|")
	}
	for _, re := range newSectionPatterns {
		if re.MatchString(firstLine) {
			return true
		}
	}
	return false
}

func (e *Expander) tokensOf(content string, known int) int {
	if known > 0 {
		return known
	}
	return e.Counter.Count(content)
}
