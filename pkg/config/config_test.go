package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1.2, cfg.Scoring.K1)
	assert.Equal(t, 0.75, cfg.Scoring.B)
	assert.Equal(t, 10, cfg.Evaluation.K)
	assert.Equal(t, "identity", cfg.Expansion.Source)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	yamlDoc := `
scoring:
  k1: 1.5
  b: 0.6
retrieval:
  topK: 20
expansion:
  source: thesaurus
  thesaurusPath: synonyms.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))
	t.Setenv("QE_SCORING_B", "0.8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.Scoring.K1)
	assert.Equal(t, 0.8, cfg.Scoring.B)
	assert.Equal(t, 20, cfg.Retrieval.TopK)
	assert.Equal(t, "thesaurus", cfg.Expansion.Source)
	// untouched sections keep their defaults
	assert.Equal(t, 8, cfg.Retrieval.Concurrency)
}

func TestValidateRejectsBadScoring(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero k1", func(c *Config) { c.Scoring.K1 = 0 }},
		{"negative b", func(c *Config) { c.Scoring.B = -0.1 }},
		{"b above one", func(c *Config) { c.Scoring.B = 1.5 }},
		{"zero cutoff", func(c *Config) { c.Evaluation.K = 0 }},
		{"zero topK", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"unknown source", func(c *Config) { c.Expansion.Source = "llm" }},
		{"remote without url", func(c *Config) { c.Expansion.Source = "remote" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
		})
	}
}
