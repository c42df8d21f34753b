package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inspol/policyrag/schema"
)

func TestClassify(t *testing.T) {
	r := Router{}

	tests := []struct {
		query string
		want  schema.TaskType
	}{
		{"암 진단비 보장 내용을 알려줘", schema.TaskSearch},
		{"약관 PDF 파일을 업로드하고 싶어요", schema.TaskUpload},
		{"문서 목록을 삭제해줘", schema.TaskManage},
		{"아무 관련 없는 문장", schema.TaskSearch},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Classify(tt.query), "query %q", tt.query)
	}
}

func TestRoute_ExplicitTaskTypeBypassesClassification(t *testing.T) {
	r := Router{}
	state := schema.NewRequestState("r", "암 진단비 보장 내용")
	state.TaskType = schema.TaskManage

	assert.Equal(t, schema.TaskManage, r.Route(state))
}

func TestRoute_EmptyQueryDefaultsToSearch(t *testing.T) {
	r := Router{}
	state := schema.NewRequestState("r", "")
	assert.Equal(t, schema.TaskSearch, r.Route(state))
}

func TestClassify_AllZeroDefaultsToSearch(t *testing.T) {
	r := Router{}
	assert.Equal(t, schema.TaskSearch, r.Classify("xyz"))
}
