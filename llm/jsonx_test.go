package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON_PlainObject(t *testing.T) {
	parsed, ok := ExtractJSON(`{"grounded": true, "score": 0.8}`)
	require.True(t, ok)
	assert.True(t, parsed.Get("grounded").Bool())
	assert.InDelta(t, 0.8, parsed.Get("score").Float(), 1e-9)
}

func TestExtractJSON_CodeFences(t *testing.T) {
	reply := "```json\n{\"grounded\": false, \"score\": 0.2}\n```"
	parsed, ok := ExtractJSON(reply)
	require.True(t, ok)
	assert.False(t, parsed.Get("grounded").Bool())

	reply = "```\n{\"score\": 1}\n```"
	parsed, ok = ExtractJSON(reply)
	require.True(t, ok)
	assert.InDelta(t, 1.0, parsed.Get("score").Float(), 1e-9)
}

func TestExtractJSON_ProseWrapped(t *testing.T) {
	reply := `검토 결과는 다음과 같습니다: {"is_sufficient": false, "chunks_to_expand": [1, 2]} 이상입니다.`
	parsed, ok := ExtractJSON(reply)
	require.True(t, ok)
	assert.False(t, parsed.Get("is_sufficient").Bool())
	assert.Len(t, parsed.Get("chunks_to_expand").Array(), 2)
}

func TestExtractJSON_NestedBracesAndStrings(t *testing.T) {
	reply := `{"reason": "중괄호 {가 포함된} 문자열", "inner": {"ok": true}}`
	parsed, ok := ExtractJSON(reply)
	require.True(t, ok)
	assert.True(t, parsed.Get("inner.ok").Bool())
}

func TestExtractJSON_EscapedQuoteInString(t *testing.T) {
	reply := `{"reason": "따옴표 \" 포함", "score": 0.5}`
	parsed, ok := ExtractJSON(reply)
	require.True(t, ok)
	assert.InDelta(t, 0.5, parsed.Get("score").Float(), 1e-9)
}

func TestExtractJSON_Failures(t *testing.T) {
	for _, reply := range []string{
		"",
		"순수한 산문 답변입니다",
		"{깨진 json",
		"]}",
	} {
		_, ok := ExtractJSON(reply)
		assert.False(t, ok, "reply %q should not parse", reply)
	}
}
