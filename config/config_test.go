package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: postgres://localhost/policyrag
llm:
  api_key: test-key
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Database.MaxOpenConns)
	assert.Equal(t, 3600, cfg.Database.ConnMaxLifeSecs)
	assert.Equal(t, "gpt-4o", cfg.LLM.AnswerModel)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.ValidationModel)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.InDelta(t, 0.7, cfg.Search.Threshold, 1e-9)
	assert.InDelta(t, 0.3, cfg.Search.ClauseThreshold, 1e-9)
	assert.Equal(t, 60, cfg.Search.RRFK)
	assert.Equal(t, 20000, cfg.Search.MaxContextTokens)
	assert.Equal(t, 3, cfg.Expansion.MaxExpansions)
	assert.Equal(t, 10000, cfg.Expansion.TokenCeiling)
	assert.Equal(t, 15000, cfg.Expansion.MaxMergeTokens)
	assert.Equal(t, 10000, cfg.Cache.MaxEntries)
	assert.Equal(t, 3600, cfg.Cache.TTLSeconds)
	assert.InDelta(t, 0.7, cfg.Validation.ReliableThreshold, 1e-9)
	assert.Equal(t, 3, cfg.Validation.MaxAttempts)
}

func TestLoad_MissingDSNFails(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: test-key
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_OutOfRangeThresholdFails(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: postgres://localhost/policyrag
search:
  threshold: 1.5
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	path := writeConfig(t, `
database:
  dsn: postgres://localhost/policyrag
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "from-env", cfg.Embedding.APIKey)
}
