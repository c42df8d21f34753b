package judge

import (
	"context"
	"fmt"
	"strings"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/llm"
	"github.com/inspol/policyrag/schema"
)

// SufficiencyCheck is the parsed LLM verdict on whether the assembled context
// can answer the question.
type SufficiencyCheck struct {
	IsSufficient   bool
	MissingInfo    string
	ChunksToExpand []int64
	Explanation    string
}

const sufficiencySystemPrompt = `당신은 문서 컨텍스트의 충분성을 판단하는 전문가입니다. 반드시 JSON으로만 답변하세요.`

const sufficiencyPromptFormat = `다음 질문에 답변하기 위해 제공된 컨텍스트가 충분한지 판단해주세요.

질문: %s

컨텍스트:
%s

JSON 형식으로만 답변하세요:
{"is_sufficient": true/false, "missing_info": "누락된 정보 (없으면 빈 문자열)", "chunks_to_expand": [확장이 필요한 청크 번호], "explanation": "판단 이유"}

중요: 청크의 내용이 잘려서 문맥이 불완전한 경우 is_sufficient를 false로 판단하세요.`

// checkSufficiency asks the validation model whether the context suffices.
// The reply is parsed leniently; any API or parse failure defaults to
// sufficient so the expansion loop cannot spin on a broken model.
func (j *Judge) checkSufficiency(ctx context.Context, query string, results []schema.SearchResult) SufficiencyCheck {
	var b strings.Builder
	chunkIDs := make([]int64, 0, len(results))
	for idx, r := range results {
		fmt.Fprintf(&b, "[청크 %d (ID: %d)]:\n%s\n\n", idx+1, r.ChunkID, r.Content)
		chunkIDs = append(chunkIDs, r.ChunkID)
	}

	prompt := fmt.Sprintf(sufficiencyPromptFormat, query, strings.TrimSpace(b.String()))

	completion, err := j.LLM.CompleteValidation(ctx, sufficiencySystemPrompt, prompt)
	if err != nil {
		logger.Warnf("judge: sufficiency call failed, assuming sufficient: %v", err)
		return SufficiencyCheck{IsSufficient: true, Explanation: "sufficiency check unavailable"}
	}

	parsed, ok := llm.ExtractJSON(completion.Text)
	if !ok {
		// Last resort: scan the prose for a negative verdict.
		if strings.Contains(completion.Text, "불충분") {
			return SufficiencyCheck{IsSufficient: false, Explanation: completion.Text}
		}
		logger.Warnf("judge: unparseable sufficiency reply, assuming sufficient")
		return SufficiencyCheck{IsSufficient: true, Explanation: completion.Text}
	}

	check := SufficiencyCheck{
		IsSufficient: parsed.Get("is_sufficient").Bool(),
		MissingInfo:  parsed.Get("missing_info").String(),
		Explanation:  parsed.Get("explanation").String(),
	}
	for _, idx := range parsed.Get("chunks_to_expand").Array() {
		n := int(idx.Int())
		if n >= 1 && n <= len(chunkIDs) {
			check.ChunksToExpand = append(check.ChunksToExpand, chunkIDs[n-1])
		}
	}
	return check
}
