package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dirctx/internal/domain"
)

// TestConfig_GetDefaultModel tests retrieving the default model
func TestConfig_GetDefaultModel(t *testing.T) {
	tests := []struct {
		name        string
		config      domain.Config
		wantError   bool
		wantModelID string
	}{
		{
			name: "returns default model successfully",
			config: domain.Config{
				Preferences: domain.Preferences{DefaultModel: "flash"},
				Models: []domain.ModelDefinition{
					{Name: "flash", ModelID: "gemini-2.5-flash"},
					{Name: "gpt4", ModelID: "gpt-4o"},
				},
			},
			wantModelID: "gemini-2.5-flash",
		},
		{
			name: "returns error when default model not found",
			config: domain.Config{
				Preferences: domain.Preferences{DefaultModel: "nonexistent"},
				Models:      []domain.ModelDefinition{{Name: "flash", ModelID: "gemini-2.5-flash"}},
			},
			wantError: true,
		},
		{
			name: "returns error when no default model configured",
			config: domain.Config{
				Models: []domain.ModelDefinition{{Name: "flash", ModelID: "gemini-2.5-flash"}},
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := tt.config.GetDefaultModel()
			if tt.wantError {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrNoModel))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModelID, model.ModelID)
		})
	}
}

func TestConfig_ResolveModel(t *testing.T) {
	cfg := domain.Config{
		Preferences: domain.Preferences{DefaultModel: "a"},
		Models:      []domain.ModelDefinition{{Name: "a", ModelID: "model-a"}, {Name: "b", ModelID: "model-b"}},
	}

	model, err := cfg.ResolveModel("")
	require.NoError(t, err)
	assert.Equal(t, "model-a", model.ModelID)

	model, err = cfg.ResolveModel("b")
	require.NoError(t, err)
	assert.Equal(t, "model-b", model.ModelID)

	_, err = cfg.ResolveModel("c")
	assert.ErrorIs(t, err, domain.ErrNoModel)
}

func TestConfig_Budgets(t *testing.T) {
	cfg := domain.Config{
		Context: domain.ContextSettings{ContextFileRatio: 0.9, MinChunkTokens: 50},
		Cache:   domain.CacheSettings{APIContextCacheTTL: 3600},
	}
	model := domain.ModelDefinition{ContextSize: 10000}

	assert.Equal(t, 9000, cfg.FileBudget(model))
	assert.Equal(t, 1000, cfg.HistoryBudget(model))
	assert.Equal(t, 180, cfg.MaxNeighbors(model))
	assert.Equal(t, time.Hour, cfg.PrefixCacheTTL())
}

func TestConfig_MaxNeighborsWithoutChunkEstimate(t *testing.T) {
	cfg := domain.Config{Context: domain.ContextSettings{ContextFileRatio: 0.5}}
	assert.Zero(t, cfg.MaxNeighbors(domain.ModelDefinition{ContextSize: 1000}))
}
