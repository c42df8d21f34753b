package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_CompoundNounSurvives(t *testing.T) {
	e := NewRuleExtractor()
	assert.Equal(t, []string{"면책기간"}, e.Extract("면책기간은 얼마나 되나요?"))
}

func TestExtract_ParticleStripping(t *testing.T) {
	e := NewRuleExtractor()
	got := e.Extract("제15조의 내용을 알려줘")
	assert.Equal(t, []string{"제15조", "내용"}, got)
}

func TestExtract_SingleCharAllowList(t *testing.T) {
	e := NewRuleExtractor()
	got := e.Extract("암 진단금은?")
	assert.Equal(t, []string{"암", "진단금"}, got)
}

func TestExtract_QuestionWordsDropped(t *testing.T) {
	e := NewRuleExtractor()
	assert.Empty(t, e.Extract("얼마"))
	assert.Empty(t, e.Extract("언제 어디"))
}

func TestExtract_PredicateFormsDropped(t *testing.T) {
	e := NewRuleExtractor()
	got := e.Extract("보험금 지급 조건을 설명해줘")
	assert.Equal(t, []string{"보험금", "지급", "조건"}, got)
}

func TestExtract_DeduplicatesInOrder(t *testing.T) {
	e := NewRuleExtractor()
	got := e.Extract("보험금 보험금 진단비")
	assert.Equal(t, []string{"보험금", "진단비"}, got)
}

func TestExtract_EmptyAndPunctuationOnly(t *testing.T) {
	e := NewRuleExtractor()
	assert.Empty(t, e.Extract(""))
	assert.Empty(t, e.Extract("   "))
	assert.Empty(t, e.Extract("?!"))
}
