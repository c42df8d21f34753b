package config

import "fmt"

// Validate checks ranges and fills defaults in place.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 20
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 30
	}
	if c.Database.ConnMaxLifeSecs <= 0 {
		c.Database.ConnMaxLifeSecs = 3600
	}

	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 3600
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 10000
	}

	if c.LLM.AnswerModel == "" {
		c.LLM.AnswerModel = "gpt-4o"
	}
	if c.LLM.ValidationModel == "" {
		c.LLM.ValidationModel = "gpt-4o-mini"
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature out of range: %f", c.LLM.Temperature)
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.1
	}
	if c.LLM.MaxAnswerTokens <= 0 {
		c.LLM.MaxAnswerTokens = 1000
	}

	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-large"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.MaxConcurrent <= 0 {
		c.Embedding.MaxConcurrent = 5
	}

	if c.Search.TopK <= 0 {
		c.Search.TopK = 5
	}
	if c.Search.Threshold <= 0 {
		c.Search.Threshold = 0.7
	}
	if c.Search.ClauseThreshold <= 0 {
		c.Search.ClauseThreshold = 0.3
	}
	if c.Search.RRFK <= 0 {
		c.Search.RRFK = 60
	}
	if c.Search.MaxContextTokens <= 0 {
		c.Search.MaxContextTokens = 20000
	}
	if c.Search.Threshold >= 1 {
		return fmt.Errorf("search.threshold must be below 1.0: %f", c.Search.Threshold)
	}

	if c.Expansion.MaxExpansions <= 0 {
		c.Expansion.MaxExpansions = 3
	}
	if c.Expansion.TokenCeiling <= 0 {
		c.Expansion.TokenCeiling = 10000
	}
	if c.Expansion.MaxMergeTokens <= 0 {
		c.Expansion.MaxMergeTokens = 15000
	}
	if c.Expansion.AdjacentPerSide <= 0 {
		c.Expansion.AdjacentPerSide = 2
	}

	if c.Validation.ReliableThreshold <= 0 {
		c.Validation.ReliableThreshold = 0.7
	}
	if c.Validation.ReliableThreshold > 1 {
		return fmt.Errorf("validation.reliable_threshold must be at most 1.0: %f", c.Validation.ReliableThreshold)
	}
	if c.Validation.MaxAttempts <= 0 {
		c.Validation.MaxAttempts = 3
	}
	return nil
}
