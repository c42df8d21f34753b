package llm

import "context"

// Completion is a finished chat completion with its token accounting.
type Completion struct {
	Text        string
	TotalTokens int64
}

// Client is the LLM surface the pipeline depends on. CompleteAnswer drives
// answer generation on the stronger model; CompleteValidation serves the
// sufficiency and hallucination checks on the cheaper one.
type Client interface {
	CompleteAnswer(ctx context.Context, systemPrompt, userPrompt string) (Completion, error)
	CompleteValidation(ctx context.Context, systemPrompt, userPrompt string) (Completion, error)
}
