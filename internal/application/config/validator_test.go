package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dirctx/internal/domain"
)

func validConfig() domain.Config {
	return domain.Config{
		ConfigFormatVersion: "1",
		Preferences:         domain.Preferences{DefaultModel: "gpt", TimeoutSeconds: 30},
		Models: []domain.ModelDefinition{
			{Name: "gpt", ModelID: "gpt-4o", ContextSize: 128000, MaxTokens: 4096},
		},
		Embedding: domain.EmbeddingSettings{ModelID: "text-embedding-3-small", ChunkSize: 512},
		Context: domain.ContextSettings{
			ContextFileRatio:         0.9,
			ArtifactExcludableFactor: 0.1,
			ArtifactMaxDistance:      0.9,
			CGRAGMaxDistance:         0.9,
			MinChunkTokens:           64,
		},
		Cache: domain.CacheSettings{APIContextCacheTTL: 3600},
		Index: domain.IndexSettings{ConcurrentFiles: 4, ChunkWorkers: 4},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidateReportsConfigKeys(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.Config)
		want   string
	}{
		{"no models", func(c *domain.Config) { c.Models = nil }, "models needs at least 1"},
		{"ratio", func(c *domain.Config) { c.Context.ContextFileRatio = 1.5 }, "context.context_file_ratio"},
		{"excludable", func(c *domain.Config) { c.Context.ArtifactExcludableFactor = -0.1 }, "context.artifact_excludable_factor"},
		{"ttl", func(c *domain.Config) { c.Cache.APIContextCacheTTL = 0 }, "cache.api_context_cache_ttl"},
		{"model id", func(c *domain.Config) { c.Models[0].ModelID = "" }, "models[0].model_id is required"},
		{"embedding", func(c *domain.Config) { c.Embedding.ChunkSize = 0 }, "embedding.chunk_size"},
		{"workers", func(c *domain.Config) { c.Index.ChunkWorkers = 0 }, "index.chunk_workers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidateCrossFieldChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Preferences.DefaultModel = "missing"
	assert.ErrorContains(t, Validate(cfg), "default model missing not found")

	cfg = validConfig()
	cfg.Models = append(cfg.Models, cfg.Models[0])
	assert.ErrorContains(t, Validate(cfg), "duplicate model name gpt")

	cfg = validConfig()
	cfg.Models[0].MaxTokens = cfg.Models[0].ContextSize
	assert.ErrorContains(t, Validate(cfg), "max_tokens must be below context_size")
}
