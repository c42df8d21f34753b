package judge

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inspol/policyrag/llm"
	"github.com/inspol/policyrag/schema"
	"github.com/inspol/policyrag/structure"
)

type mockLLM struct {
	validationText string
	err            error
	calls          int
}

func (m *mockLLM) CompleteAnswer(context.Context, string, string) (llm.Completion, error) {
	return llm.Completion{}, fmt.Errorf("not used")
}

func (m *mockLLM) CompleteValidation(context.Context, string, string) (llm.Completion, error) {
	m.calls++
	if m.err != nil {
		return llm.Completion{}, m.err
	}
	return llm.Completion{Text: m.validationText}, nil
}

type fixedCounter struct{ n int }

func (f fixedCounter) Count(string) int { return f.n }

func newTestJudge(client llm.Client) *Judge {
	return New(structure.New(), client, fixedCounter{n: 100})
}

func sufficientJSON() string {
	return `{"is_sufficient": true, "missing_info": "", "chunks_to_expand": [], "explanation": "ok"}`
}

func insufficientJSON(chunks string) string {
	return fmt.Sprintf(`{"is_sufficient": false, "missing_info": "뒷부분", "chunks_to_expand": [%s], "explanation": "잘림"}`, chunks)
}

func TestJudge_NoResultsIsSufficient(t *testing.T) {
	m := &mockLLM{validationText: sufficientJSON()}
	j := newTestJudge(m)
	state := schema.NewRequestState("r", "질문")

	j.Judge(context.Background(), state)

	assert.Equal(t, schema.SufficiencySufficient, state.ContextSufficient)
	assert.Empty(t, state.ChunksToExpand)
	assert.Zero(t, m.calls, "no LLM call without results")
}

func TestJudge_ExpansionLimitForcesSufficient(t *testing.T) {
	m := &mockLLM{validationText: insufficientJSON("1")}
	j := newTestJudge(m)
	state := schema.NewRequestState("r", "질문")
	state.SearchResults = []schema.SearchResult{{ChunkID: 1, Content: "잘린 내용이 계속되", TokenCount: 10}}
	state.ExpansionCount = 3

	j.Judge(context.Background(), state)

	assert.Equal(t, schema.SufficiencySufficient, state.ContextSufficient)
	assert.Zero(t, m.calls)
}

func TestJudge_TokenCeilingOnLaterPasses(t *testing.T) {
	m := &mockLLM{validationText: insufficientJSON("1")}
	j := newTestJudge(m)
	state := schema.NewRequestState("r", "질문")
	state.SearchResults = []schema.SearchResult{{ChunkID: 1, Content: "내용", TokenCount: 20000}}
	state.ExpansionCount = 1

	j.Judge(context.Background(), state)

	assert.Equal(t, schema.SufficiencySufficient, state.ContextSufficient)
	assert.Zero(t, m.calls)
}

func TestJudge_RelevanceGateSuppressesExpansion(t *testing.T) {
	// Incomplete chunk that shares no keywords with the query.
	m := &mockLLM{validationText: sufficientJSON()}
	j := newTestJudge(m)
	state := schema.NewRequestState("r", "암 진단비")
	state.Preprocessed = &schema.PreprocessedQuery{ExpandedTerms: []string{"암", "진단비"}}
	state.SearchResults = []schema.SearchResult{
		{ChunkID: 1, Content: "9. 사전연명의료의향서 작성 절차에 따라 처리하", TokenCount: 10},
	}

	j.Judge(context.Background(), state)

	assert.Equal(t, schema.SufficiencySufficient, state.ContextSufficient)
	assert.Empty(t, state.ChunksToExpand)
}

func TestJudge_IncompleteRelevantChunkRequestsExpansion(t *testing.T) {
	m := &mockLLM{validationText: sufficientJSON()}
	j := newTestJudge(m)
	state := schema.NewRequestState("r", "암 진단비")
	state.Preprocessed = &schema.PreprocessedQuery{ExpandedTerms: []string{"암", "진단비"}}
	state.SearchResults = []schema.SearchResult{
		{ChunkID: 7, Content: "제5조 암 진단비의 지급 기준은 다음 각 호에서 정하는 바에 따르", TokenCount: 10},
	}

	j.Judge(context.Background(), state)

	require.Equal(t, schema.SufficiencyInsufficient, state.ContextSufficient)
	require.Len(t, state.ChunksToExpand, 1)
	assert.Equal(t, int64(7), state.ChunksToExpand[0].ChunkID)
	assert.Equal(t, schema.ExpandNext, state.ChunksToExpand[0].Direction)
}

func TestJudge_BothDirectionRefinedToNext(t *testing.T) {
	c := structure.Completeness{
		Direction:   schema.ExpandBoth,
		FrontIssues: []string{"front"},
		BackIssues:  []string{"back"},
	}
	assert.Equal(t, schema.ExpandNext, refineDirection(c))

	c = structure.Completeness{Direction: schema.ExpandBoth, FrontIssues: []string{"front"}}
	assert.Equal(t, schema.ExpandPrev, refineDirection(c))

	c = structure.Completeness{Direction: schema.ExpandBoth, BackIssues: []string{"back"}}
	assert.Equal(t, schema.ExpandNext, refineDirection(c))
}

func TestJudge_LLMSuggestionUnionedWithDirectionBoth(t *testing.T) {
	// Structurally complete chunks, but the LLM flags chunk 2.
	m := &mockLLM{validationText: insufficientJSON("2")}
	j := newTestJudge(m)
	state := schema.NewRequestState("r", "질문")
	state.SearchResults = []schema.SearchResult{
		{ChunkID: 11, Content: "제1조 완결된 내용이다.", TokenCount: 10},
		{ChunkID: 12, Content: "제2조 역시 완결된 내용이다.", TokenCount: 10},
	}

	j.Judge(context.Background(), state)

	require.Equal(t, schema.SufficiencyInsufficient, state.ContextSufficient)
	require.Len(t, state.ChunksToExpand, 1)
	assert.Equal(t, int64(12), state.ChunksToExpand[0].ChunkID)
	assert.Equal(t, schema.ExpandBoth, state.ChunksToExpand[0].Direction)
}

func TestJudge_LaterPassExpandsAtMostOneForward(t *testing.T) {
	m := &mockLLM{validationText: insufficientJSON("1, 2")}
	j := newTestJudge(m)
	state := schema.NewRequestState("r", "질문")
	state.SearchResults = []schema.SearchResult{
		{ChunkID: 21, Content: "내용 일부가 계속되", TokenCount: 10},
		{ChunkID: 22, Content: "다른 내용도 계속되", TokenCount: 10},
	}
	state.ExpansionCount = 1

	j.Judge(context.Background(), state)

	require.Equal(t, schema.SufficiencyInsufficient, state.ContextSufficient)
	require.Len(t, state.ChunksToExpand, 1)
	assert.Equal(t, int64(21), state.ChunksToExpand[0].ChunkID)
	assert.Equal(t, schema.ExpandNext, state.ChunksToExpand[0].Direction)
}

func TestJudge_MalformedLLMReplyDefaultsSufficient(t *testing.T) {
	m := &mockLLM{validationText: "완전히 자유로운 산문 답변입니다"}
	j := newTestJudge(m)
	state := schema.NewRequestState("r", "질문")
	state.SearchResults = []schema.SearchResult{
		{ChunkID: 1, Content: "제1조 완결된 내용이다.", TokenCount: 10},
	}

	j.Judge(context.Background(), state)

	assert.Equal(t, schema.SufficiencySufficient, state.ContextSufficient)
}

func TestJudge_LLMErrorDefaultsSufficient(t *testing.T) {
	m := &mockLLM{err: fmt.Errorf("api down")}
	j := newTestJudge(m)
	state := schema.NewRequestState("r", "질문")
	state.SearchResults = []schema.SearchResult{
		{ChunkID: 1, Content: "제1조 완결된 내용이다.", TokenCount: 10},
	}

	j.Judge(context.Background(), state)

	assert.Equal(t, schema.SufficiencySufficient, state.ContextSufficient)
}

func TestJudge_AlreadyExpandedChunksSkipped(t *testing.T) {
	m := &mockLLM{validationText: sufficientJSON()}
	j := newTestJudge(m)
	state := schema.NewRequestState("r", "암 진단비")
	state.Preprocessed = &schema.PreprocessedQuery{ExpandedTerms: []string{"암", "진단비"}}

	expanded := schema.SearchResult{ChunkID: 5, Content: "암 진단비 내용이 계속되", TokenCount: 10}
	expanded.SetMetadata("expanded", true)
	expanded.SetMetadata("included_chunks", []int64{5, 6})
	state.SearchResults = []schema.SearchResult{expanded}

	j.Judge(context.Background(), state)

	assert.Equal(t, schema.SufficiencySufficient, state.ContextSufficient)
	assert.Empty(t, state.ChunksToExpand)
}
