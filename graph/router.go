package graph

import (
	"strings"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/schema"
)

// Router classifies a free-form query into a task type by keyword scoring.
// An upload or manage task type already set on the state bypasses
// classification; a search task type (also the default of NewRequestState) is
// classified like an unset one. Ties and all-zero scores default to search.
type Router struct{}

var searchKeywords = []string{
	"검색", "찾아", "알려줘", "알려주세요", "무엇", "어떻게", "언제",
	"보장", "보험", "약관", "조항", "내용", "설명", "궁금",
	"질문", "문의", "확인", "가입", "해지", "청구",
}

var uploadKeywords = []string{
	"업로드", "올려", "등록", "추가", "파일", "pdf", "문서",
}

var manageKeywords = []string{
	"관리", "목록", "삭제", "다운로드", "조회", "보기",
}

// Classify scores the three keyword lists and picks the highest.
func (Router) Classify(query string) schema.TaskType {
	queryLower := strings.ToLower(query)

	score := func(keywords []string) int {
		n := 0
		for _, kw := range keywords {
			if strings.Contains(queryLower, kw) {
				n++
			}
		}
		return n
	}

	uploadScore := score(uploadKeywords)
	manageScore := score(manageKeywords)
	searchScore := score(searchKeywords)

	intent := schema.TaskSearch
	best := searchScore
	if uploadScore > best {
		intent, best = schema.TaskUpload, uploadScore
	}
	if manageScore > best {
		intent, best = schema.TaskManage, manageScore
	}
	if best == 0 || (uploadScore == best && manageScore == best) {
		intent = schema.TaskSearch
	}

	logger.Infof("router: %q -> %s (search=%d upload=%d manage=%d)",
		truncateQuery(query), intent, searchScore, uploadScore, manageScore)
	return intent
}

// Route resolves the state's task type, honoring a preset upload or manage type.
func (r Router) Route(state *schema.RequestState) schema.TaskType {
	if state.TaskType != "" && state.TaskType != schema.TaskSearch {
		logger.Infof("router: explicit task type %s", state.TaskType)
		return state.TaskType
	}
	if state.Query == "" {
		return schema.TaskSearch
	}
	intent := r.Classify(state.Query)
	state.TaskType = intent
	return intent
}

func truncateQuery(q string) string {
	runes := []rune(q)
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return q
}
