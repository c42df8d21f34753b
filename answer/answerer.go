package answer

import (
	"context"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/metrics"
	"github.com/inspol/policyrag/schema"
)

// Canned user-facing responses for the degraded paths.
const (
	searchErrorAnswer = "죄송합니다. 검색 중 오류가 발생하여 답변을 생성할 수 없습니다."
	noResultsAnswer   = "죄송합니다. 질문하신 내용과 관련된 약관 정보를 찾을 수 없습니다.\n" +
		"다른 표현으로 다시 질문하시거나, 더 구체적인 키워드를 사용해주세요."
	generationFailedAnswer = "죄송합니다. 답변 생성 중 문제가 발생했습니다. 잠시 후 다시 시도해주세요."
)

// Answerer runs the generate→validate→maybe-regenerate loop.
type Answerer struct {
	Generator *Generator
	Validator *Validator

	// MaxAttempts bounds regeneration: the first generation plus retries.
	MaxAttempts int
}

// Answer produces the final answer for the state. Low-confidence completions
// are regenerated up to the attempt bound; the last attempt's answer is used
// regardless of its confidence.
func (a *Answerer) Answer(ctx context.Context, state *schema.RequestState) {
	if state.Err != "" {
		logger.Warnf("answerer: upstream error, returning apology: %s", state.Err)
		state.FinalAnswer = searchErrorAnswer
		state.MergeTaskResult("answer", map[string]any{
			"success": false,
			"error":   state.Err,
		})
		return
	}

	if len(state.SearchResults) == 0 {
		state.FinalAnswer = noResultsAnswer
		state.MergeTaskResult("answer", map[string]any{
			"success":    true,
			"no_results": true,
		})
		return
	}

	maxAttempts := a.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	// The context is assembled once; every attempt sees the same references.
	context_ := BuildContext(state.SearchResults)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		completion, err := a.Generator.Generate(ctx, state.Query, context_)
		if err != nil {
			logger.Errorf("answerer: attempt %d/%d generation failed: %v", attempt+1, maxAttempts, err)
			if attempt == maxAttempts-1 {
				state.FinalAnswer = generationFailedAnswer
				state.MergeTaskResult("answer", map[string]any{
					"success":  false,
					"error":    err.Error(),
					"attempts": attempt + 1,
				})
				return
			}
			continue
		}

		validation := a.Validator.Validate(ctx, completion.Text, state.SearchResults)
		validation.RegenerationCount = attempt

		logger.Infof("answerer: attempt %d confidence=%.2f reliable=%v",
			attempt+1, validation.ConfidenceScore, validation.IsReliable)

		if validation.IsReliable || attempt == maxAttempts-1 {
			if validation.IsReliable {
				metrics.IncRegeneration("accepted")
			} else {
				metrics.IncRegeneration("exhausted")
				logger.Warnf("answerer: low confidence %.2f after %d attempts, returning anyway",
					validation.ConfidenceScore, attempt+1)
			}
			state.FinalAnswer = completion.Text
			state.Validation = &validation
			state.MergeTaskResult("answer", map[string]any{
				"success":      true,
				"tokens_used":  completion.TotalTokens,
				"confidence":   validation.ConfidenceScore,
				"is_reliable":  validation.IsReliable,
				"regeneration": attempt,
			})
			return
		}

		metrics.IncRegeneration("retry")
		logger.Warnf("answerer: confidence %.2f below threshold, regenerating (%d/%d)",
			validation.ConfidenceScore, attempt+1, maxAttempts)
	}
}
