package app

import (
	"context"
	"fmt"
	"time"

	"github.com/inspol/policyrag/answer"
	"github.com/inspol/policyrag/cache"
	"github.com/inspol/policyrag/config"
	"github.com/inspol/policyrag/embedding"
	"github.com/inspol/policyrag/expand"
	"github.com/inspol/policyrag/graph"
	"github.com/inspol/policyrag/judge"
	"github.com/inspol/policyrag/keyword"
	"github.com/inspol/policyrag/llm"
	"github.com/inspol/policyrag/preprocess"
	"github.com/inspol/policyrag/schema"
	"github.com/inspol/policyrag/search"
	"github.com/inspol/policyrag/store"
	"github.com/inspol/policyrag/structure"
	"github.com/inspol/policyrag/tokenizer"
)

// App owns the wired QA pipeline. The embedding provider, LLM client, and
// cache facade are shared across requests; each request gets its own state.
type App struct {
	Engine *graph.Engine
	Store  *store.PostgresStore
}

// New wires the pipeline from configuration.
func New(cfg *config.Config) (*App, error) {
	counter, err := tokenizer.Shared()
	if err != nil {
		return nil, fmt.Errorf("init tokenizer: %w", err)
	}

	dict, err := preprocess.LoadTermDictionary(cfg.Terms.Path)
	if err != nil {
		return nil, fmt.Errorf("load term dictionary: %w", err)
	}

	pg, err := store.OpenPostgres(cfg.Database)
	if err != nil {
		return nil, err
	}

	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	c := cache.New(cfg.Cache)

	extractor := keyword.NewRuleExtractor()
	embedder := embedding.NewOpenAI(cfg.Embedding, c, cacheTTL)
	client := llm.NewOpenAI(cfg.LLM)

	hybrid := &search.HybridSearcher{
		Vector:           &search.VectorSearcher{Embed: embedder, Store: pg},
		Keyword:          &search.KeywordSearcher{Extractor: extractor, Store: pg},
		Counter:          counter,
		Sink:             pg,
		RRFK:             cfg.Search.RRFK,
		MaxContextTokens: cfg.Search.MaxContextTokens,
	}

	contextJudge := judge.New(structure.New(), client, counter)
	contextJudge.MaxExpansions = cfg.Expansion.MaxExpansions
	contextJudge.TokenCeiling = cfg.Expansion.TokenCeiling

	expander := &expand.Expander{
		Store:           pg,
		Counter:         counter,
		MaxMergeTokens:  cfg.Expansion.MaxMergeTokens,
		AdjacentPerSide: cfg.Expansion.AdjacentPerSide,
	}

	answerer := &answer.Answerer{
		Generator: &answer.Generator{LLM: client},
		Validator: &answer.Validator{
			LLM:               client,
			Store:             pg,
			ReliableThreshold: cfg.Validation.ReliableThreshold,
		},
		MaxAttempts: cfg.Validation.MaxAttempts,
	}

	engine := &graph.Engine{
		Preprocessor:    preprocess.New(dict, extractor),
		Hybrid:          hybrid,
		Judge:           contextJudge,
		Expander:        expander,
		Answerer:        answerer,
		TopK:            cfg.Search.TopK,
		Threshold:       cfg.Search.Threshold,
		ClauseThreshold: cfg.Search.ClauseThreshold,
	}

	return &App{Engine: engine, Store: pg}, nil
}

// Query runs one question through the graph.
func (a *App) Query(ctx context.Context, query string) *schema.RequestState {
	return a.Engine.Run(ctx, query)
}
