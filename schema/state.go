package schema

// TaskType classifies what a request asks the graph to do. Only search
// exercises the retrieval/answer pipeline.
type TaskType string

const (
	TaskSearch TaskType = "search"
	TaskUpload TaskType = "upload"
	TaskManage TaskType = "manage"
)

// ExpandDirection tells the expander which neighbors to pull in.
type ExpandDirection string

const (
	ExpandPrev ExpandDirection = "prev"
	ExpandNext ExpandDirection = "next"
	ExpandBoth ExpandDirection = "both"
	ExpandNone ExpandDirection = "none"
)

// ExpandRequest names one chunk the judge wants expanded.
type ExpandRequest struct {
	ChunkID   int64           `json:"chunk_id"`
	Direction ExpandDirection `json:"direction"`
	Reasons   []string        `json:"reasons,omitempty"`
}

// Sufficiency is the judge's tri-state verdict on the assembled context.
type Sufficiency int

const (
	SufficiencyUnknown Sufficiency = iota
	SufficiencySufficient
	SufficiencyInsufficient
)

// RequestState is the state object threaded through the graph. It is created
// at request arrival, mutated only by the agent currently executing, and
// dropped at end of request.
type RequestState struct {
	RequestID string
	Query     string
	TaskType  TaskType
	UserID    *int64

	SearchResults     []SearchResult
	TotalTokens       int
	Preprocessed      *PreprocessedQuery
	ContextSufficient Sufficiency
	ChunksToExpand    []ExpandRequest
	ExpansionCount    int

	taskResults map[string]map[string]any

	FinalAnswer string
	Validation  *ValidationReport
	Suggestions []string
	Err         string
}

// NewRequestState initializes state for one query traversal.
func NewRequestState(requestID, query string) *RequestState {
	return &RequestState{
		RequestID:   requestID,
		Query:       query,
		TaskType:    TaskSearch,
		taskResults: make(map[string]map[string]any),
	}
}

// MergeTaskResult records a per-agent summary. Merging is additive: keys
// already written by an earlier agent are kept, never overwritten.
func (s *RequestState) MergeTaskResult(agent string, values map[string]any) {
	if s.taskResults == nil {
		s.taskResults = make(map[string]map[string]any)
	}
	dst, ok := s.taskResults[agent]
	if !ok {
		dst = make(map[string]any, len(values))
		s.taskResults[agent] = dst
	}
	for k, v := range values {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}

// TaskResult returns the summary map recorded for an agent, or nil.
func (s *RequestState) TaskResult(agent string) map[string]any {
	if s.taskResults == nil {
		return nil
	}
	return s.taskResults[agent]
}

// TaskResults returns a copy of all recorded summaries.
func (s *RequestState) TaskResults() map[string]map[string]any {
	out := make(map[string]map[string]any, len(s.taskResults))
	for agent, values := range s.taskResults {
		m := make(map[string]any, len(values))
		for k, v := range values {
			m[k] = v
		}
		out[agent] = m
	}
	return out
}
