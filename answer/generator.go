package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/inspol/policyrag/llm"
	"github.com/inspol/policyrag/schema"
)

// Generator produces a cited, structured answer strictly grounded in the
// provided references.
type Generator struct {
	LLM llm.Client
}

const systemPrompt = `당신은 보험약관 전문 AI 어시스턴트입니다.

## 핵심 원칙 (반드시 준수)

### 1. 정확성 보장
- 제공된 참조 문서의 내용**만**을 사용하여 답변하세요
- 일반 상식이나 사전 학습 지식을 사용하지 마세요
- 참조 문서에 명시된 표현을 그대로 인용하세요

### 2. 출처 및 조항 번호 인용
- 모든 주요 내용에 대해 반드시 참조 번호를 명시하세요 (예: [참조 1])
- 조항 번호가 있다면 반드시 포함하세요 (예: 제3조 제2항)

### 3. 한계 인정
- 참조 문서에 없는 내용은 "제공된 약관 문서에서는 해당 정보를 찾을 수 없습니다"라고 답하세요
- 절대로 추측하거나 일반적인 보험 상식으로 답변하지 마세요

### 4. 답변 구조 (필수)
반드시 아래 형식을 따르세요. 각 섹션 제목은 별표 2개로 감싸야 합니다:

**📌 답변**
(질문에 대한 핵심 답변. 조항 번호와 참조 번호 포함)

**📋 관련 약관**
- [참조 X] 조항명 및 번호: 주요 내용

**⚠️ 주의사항**
(제한사항, 예외사항 등. 없으면 생략)`

// BuildContext assembles the reference blocks handed to the model. Expanded
// results list every merged chunk id so citations stay traceable.
func BuildContext(results []schema.SearchResult) string {
	if len(results) == 0 {
		return "검색 결과가 없습니다."
	}

	var b strings.Builder
	for idx, r := range results {
		clause := r.ClauseNumber
		if clause == "" {
			clause = "N/A"
		}
		page := "N/A"
		if r.PageNumber != nil {
			page = fmt.Sprintf("%d", *r.PageNumber)
		}

		chunkInfo := fmt.Sprintf("청크: %d", r.ChunkID)
		if included := r.IncludedChunks(); r.Expanded() && len(included) > 0 {
			ids := make([]string, 0, len(included))
			for _, id := range included {
				ids = append(ids, fmt.Sprintf("%d", id))
			}
			chunkInfo = "청크: " + strings.Join(ids, ", ")
		}

		fmt.Fprintf(&b, "[참조 %d] (유사도: %.3f)\n문서: %s, 페이지: %s, 조항: %s\n%s\n내용:\n%s\n\n",
			idx+1, r.Similarity, r.Document.Filename, page, clause, chunkInfo, r.Content)
	}
	return strings.TrimSpace(b.String())
}

// Generate runs a single completion over the assembled context.
func (g *Generator) Generate(ctx context.Context, query, context_ string) (llm.Completion, error) {
	userPrompt := fmt.Sprintf("참조 문서:\n\n%s\n\n질문: %s", context_, query)
	return g.LLM.CompleteAnswer(ctx, systemPrompt, userPrompt)
}
