package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/config"
)

// OpenAIClient talks to an OpenAI-compatible chat-completion endpoint.
type OpenAIClient struct {
	client          openai.Client
	answerModel     string
	validationModel string
	temperature     float64
	maxAnswerTokens int64
}

// NewOpenAI builds the client from configuration.
func NewOpenAI(cfg config.LLMConfig) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{
		client:          openai.NewClient(opts...),
		answerModel:     cfg.AnswerModel,
		validationModel: cfg.ValidationModel,
		temperature:     cfg.Temperature,
		maxAnswerTokens: int64(cfg.MaxAnswerTokens),
	}
}

// CompleteAnswer implements Client.
func (c *OpenAIClient) CompleteAnswer(ctx context.Context, systemPrompt, userPrompt string) (Completion, error) {
	return c.complete(ctx, c.answerModel, systemPrompt, userPrompt, c.temperature, c.maxAnswerTokens)
}

// CompleteValidation implements Client. Temperature 0 and a short completion
// budget keep the judge and validator deterministic and cheap.
func (c *OpenAIClient) CompleteValidation(ctx context.Context, systemPrompt, userPrompt string) (Completion, error) {
	return c.complete(ctx, c.validationModel, systemPrompt, userPrompt, 0, 200)
}

func (c *OpenAIClient) complete(ctx context.Context, model, systemPrompt, userPrompt string, temperature float64, maxTokens int64) (Completion, error) {
	var out Completion
	err := retry.Do(
		func() error {
			resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
				Model: openai.ChatModel(model),
				Messages: []openai.ChatCompletionMessageParamUnion{
					openai.SystemMessage(systemPrompt),
					openai.UserMessage(userPrompt),
				},
				Temperature: openai.Float(temperature),
				MaxTokens:   openai.Int(maxTokens),
			})
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion has no choices")
			}
			out = Completion{
				Text:        resp.Choices[0].Message.Content,
				TotalTokens: resp.Usage.TotalTokens,
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Warnf("llm: %s attempt %d failed: %v", model, n+1, err)
		}),
	)
	if err != nil {
		return Completion{}, fmt.Errorf("complete with %s: %w", model, err)
	}
	return out, nil
}
