package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inspol/policyrag/keyword"
)

func newTestPreprocessor(t *testing.T) *Preprocessor {
	t.Helper()
	dict, err := LoadTermDictionary("")
	require.NoError(t, err)
	return New(dict, keyword.NewRuleExtractor())
}

func TestPreprocess_WhitespaceNormalization(t *testing.T) {
	p := newTestPreprocessor(t)
	got := p.Preprocess("  암   진단비   얼마인가요?  ")
	assert.Equal(t, "암 진단비 얼마인가요?", got.Normalized)
}

func TestPreprocess_TermStandardization(t *testing.T) {
	p := newTestPreprocessor(t)
	got := p.Preprocess("암진단비 얼마인가요?")

	assert.Equal(t, "암 진단비 얼마인가요?", got.Standardized)
	assert.Contains(t, got.ExpandedTerms, "암")
	assert.Contains(t, got.ExpandedTerms, "진단비")
	assert.Contains(t, got.ExpandedTerms, "악성신생물")
	assert.Contains(t, got.ExpandedTerms, "암질환")
	assert.True(t, got.IsComplete)
}

func TestPreprocess_ClauseNumberVariants(t *testing.T) {
	p := newTestPreprocessor(t)

	tests := []struct {
		query string
		want  string
	}{
		{"제15조의 내용을 알려줘", "제15조"},
		{"제 15 조 내용", "제15조"},
		{"15조 보장 내용", "제15조"},
		{"보험금 얼마인가요?", ""},
	}
	for _, tt := range tests {
		got := p.Preprocess(tt.query)
		assert.Equal(t, tt.want, got.ClauseNumber, "query %q", tt.query)
	}
}

func TestPreprocess_IncompleteQuery(t *testing.T) {
	p := newTestPreprocessor(t)
	got := p.Preprocess("얼마")

	assert.False(t, got.IsComplete)
	assert.NotEmpty(t, got.Suggestions)
}

func TestPreprocess_Idempotent(t *testing.T) {
	p := newTestPreprocessor(t)

	first := p.Preprocess("암진단비 얼마인가요?")
	second := p.Preprocess(first.Standardized)

	assert.Equal(t, first.Standardized, second.Standardized)
	assert.Equal(t, first.ClauseNumber, second.ClauseNumber)
	assert.Equal(t, first.IsComplete, second.IsComplete)
}

func TestPreprocess_FallbackOnMisconfiguration(t *testing.T) {
	p := New(nil, nil)
	got := p.Preprocess("암 진단비")

	assert.Equal(t, "암 진단비", got.Original)
	assert.Equal(t, "암 진단비", got.Standardized)
	assert.Equal(t, []string{"암 진단비"}, got.ExpandedTerms)
	assert.True(t, got.IsComplete)
}

func TestLoadTermDictionary_EmbeddedDefaults(t *testing.T) {
	dict, err := LoadTermDictionary("")
	require.NoError(t, err)

	assert.NotEmpty(t, dict.Spacing)
	assert.NotEmpty(t, dict.Synonyms)
	assert.NotEmpty(t, dict.IncompletePatterns)
}
