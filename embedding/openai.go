package embedding

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"golang.org/x/sync/semaphore"

	"github.com/inspol/policyrag/cache"
	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/config"
)

// OpenAIProvider embeds text through an OpenAI-compatible endpoint with a
// cache-through layer keyed by MD5(model, text).
type OpenAIProvider struct {
	client     openai.Client
	model      string
	dimensions int
	cache      cache.Cache
	cacheTTL   time.Duration
	sem        *semaphore.Weighted
	maxInFlight int64
}

const cachePrefix = "embedding:"

// NewOpenAI builds the provider from configuration. The cache may be nil.
func NewOpenAI(cfg config.EmbeddingConfig, c cache.Cache, cacheTTL time.Duration) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIProvider{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		cache:      c,
		cacheTTL:   cacheTTL,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrent),
		maxInFlight: cfg.MaxConcurrent,
	}
}

// Dimensions implements Provider.
func (p *OpenAIProvider) Dimensions() int { return p.dimensions }

// Embed returns the vector for a single text. Cache first, then the API with
// retry; the final failure returns a zero vector rather than an error so the
// search path keeps going.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return make([]float32, p.dimensions), nil
	}

	key := p.cacheKey(text)
	if p.cache != nil {
		var cached []float32
		if p.cache.GetJSON(ctx, key, &cached) && len(cached) == p.dimensions {
			logger.Debugf("embedding: cache hit for %q", truncate(text, 40))
			return cached, nil
		}
	}

	vec, err := p.embedRemote(ctx, text)
	if err != nil {
		logger.Errorf("embedding: giving up on %q, returning zero vector: %v", truncate(text, 40), err)
		return make([]float32, p.dimensions), nil
	}

	if p.cache != nil {
		p.cache.SetJSON(ctx, key, vec, p.cacheTTL)
	}
	return vec, nil
}

// EmbedBatch embeds many texts, bounded by the provider's fan-out semaphore.
// Entries that fail after retry come back as zero vectors in place.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	for i, text := range texts {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		go func(i int, text string) {
			defer p.sem.Release(1)
			out[i], _ = p.Embed(ctx, text)
		}(i, text)
	}

	// Acquiring the full weight waits for every in-flight call.
	if err := p.sem.Acquire(ctx, p.maxInFlight); err != nil {
		return nil, err
	}
	p.sem.Release(p.maxInFlight)

	return out, nil
}

func (p *OpenAIProvider) embedRemote(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := retry.Do(
		func() error {
			resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
				Model: openai.EmbeddingModel(p.model),
				Input: openai.EmbeddingNewParamsInputUnion{
					OfArrayOfStrings: []string{text},
				},
				Dimensions: openai.Int(int64(p.dimensions)),
			})
			if err != nil {
				return err
			}
			if len(resp.Data) == 0 {
				return fmt.Errorf("embedding response empty")
			}
			raw := resp.Data[0].Embedding
			vec = make([]float32, len(raw))
			for i, v := range raw {
				vec[i] = float32(v)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Warnf("embedding: attempt %d failed: %v", n+1, err)
		}),
	)
	if err != nil {
		return nil, err
	}
	if len(vec) != p.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d want %d", len(vec), p.dimensions)
	}
	return vec, nil
}

func (p *OpenAIProvider) cacheKey(text string) string {
	sum := md5.Sum([]byte(p.model + ":" + text))
	return cachePrefix + p.model + ":" + hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
