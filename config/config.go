package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the QA server.
type Config struct {
	Database   DatabaseConfig   `json:"database" yaml:"database"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	LLM        LLMConfig        `json:"llm" yaml:"llm"`
	Embedding  EmbeddingConfig  `json:"embedding" yaml:"embedding"`
	Search     SearchConfig     `json:"search" yaml:"search"`
	Expansion  ExpansionConfig  `json:"expansion" yaml:"expansion"`
	Validation ValidationConfig `json:"validation" yaml:"validation"`
	Terms      TermsConfig      `json:"terms" yaml:"terms"`
}

// DatabaseConfig defines the Postgres chunk store connection.
type DatabaseConfig struct {
	DSN             string `json:"dsn" yaml:"dsn"`
	MaxIdleConns    int    `json:"max_idle_conns,omitempty" yaml:"max_idle_conns,omitempty"`
	MaxOpenConns    int    `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`
	ConnMaxLifeSecs int    `json:"conn_max_life_seconds,omitempty" yaml:"conn_max_life_seconds,omitempty"`
}

// CacheConfig selects the cache backend. Redis is probed at startup and the
// in-process LRU is used when it is unreachable.
type CacheConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	RedisAddr  string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisDB    int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
	TTLSeconds int    `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
	MaxEntries int    `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
}

// LLMConfig defines the chat-completion backend. AnswerModel produces cited
// answers; ValidationModel serves the cheaper sufficiency and hallucination
// checks.
type LLMConfig struct {
	APIKey          string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL         string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	AnswerModel     string  `json:"answer_model" yaml:"answer_model"`
	ValidationModel string  `json:"validation_model" yaml:"validation_model"`
	Temperature     float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxAnswerTokens int     `json:"max_answer_tokens,omitempty" yaml:"max_answer_tokens,omitempty"`
}

// EmbeddingConfig defines the embedding backend.
type EmbeddingConfig struct {
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model" yaml:"model"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	// MaxConcurrent bounds in-flight embedding calls for batch requests.
	MaxConcurrent int64 `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
}

// SearchConfig tunes hybrid retrieval.
type SearchConfig struct {
	TopK              int     `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	Threshold         float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	ClauseThreshold   float64 `json:"clause_threshold,omitempty" yaml:"clause_threshold,omitempty"`
	RRFK              int     `json:"rrf_k,omitempty" yaml:"rrf_k,omitempty"`
	MaxContextTokens  int     `json:"max_context_tokens,omitempty" yaml:"max_context_tokens,omitempty"`
}

// ExpansionConfig tunes the judge/expand loop.
type ExpansionConfig struct {
	MaxExpansions    int `json:"max_expansions,omitempty" yaml:"max_expansions,omitempty"`
	TokenCeiling     int `json:"token_ceiling,omitempty" yaml:"token_ceiling,omitempty"`
	MaxMergeTokens   int `json:"max_merge_tokens,omitempty" yaml:"max_merge_tokens,omitempty"`
	AdjacentPerSide  int `json:"adjacent_per_side,omitempty" yaml:"adjacent_per_side,omitempty"`
}

// ValidationConfig tunes the answer validator.
type ValidationConfig struct {
	ReliableThreshold float64 `json:"reliable_threshold,omitempty" yaml:"reliable_threshold,omitempty"`
	MaxAttempts       int     `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
}

// TermsConfig locates the domain term dictionary.
type TermsConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Load reads a YAML config file, fills secrets left empty in it from the
// environment, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = v
		}
		if c.Embedding.APIKey == "" {
			c.Embedding.APIKey = v
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" && c.Database.DSN == "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" && c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = v
	}
}
