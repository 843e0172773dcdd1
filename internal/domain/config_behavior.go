package domain

import (
	"fmt"
	"math"
	"time"
)

// GetDefaultModel retrieves the default model definition from configuration
// Returns an error if the default model is not found
func (c *Config) GetDefaultModel() (ModelDefinition, error) {
	if c.Preferences.DefaultModel == "" {
		return ModelDefinition{}, fmt.Errorf("no default model configured: %w", ErrNoModel)
	}

	for _, model := range c.Models {
		if model.Name == c.Preferences.DefaultModel {
			return model, nil
		}
	}

	return ModelDefinition{}, fmt.Errorf("default model %s: %w", c.Preferences.DefaultModel, ErrNoModel)
}

// FindModelByName searches for a model by its name
// Returns the model definition and true if found, empty model and false otherwise
func (c *Config) FindModelByName(name string) (ModelDefinition, bool) {
	for _, model := range c.Models {
		if model.Name == name {
			return model, true
		}
	}
	return ModelDefinition{}, false
}

// ResolveModel returns the override model when set, the default model otherwise.
func (c *Config) ResolveModel(override string) (ModelDefinition, error) {
	if override == "" {
		return c.GetDefaultModel()
	}
	model, ok := c.FindModelByName(override)
	if !ok {
		return ModelDefinition{}, fmt.Errorf("model %s: %w", override, ErrNoModel)
	}
	return model, nil
}

// FileBudget is the number of tokens retrieved artifacts may occupy for model.
func (c *Config) FileBudget(model ModelDefinition) int {
	return int(float64(model.ContextSize) * c.Context.ContextFileRatio)
}

// HistoryBudget is the share of the context window left to a single message
// once the artifact share is reserved.
func (c *Config) HistoryBudget(model ModelDefinition) int {
	return model.ContextSize - c.FileBudget(model)
}

// MaxNeighbors is how many neighbors are requested from the index: the file
// budget divided by the smallest plausible chunk.
func (c *Config) MaxNeighbors(model ModelDefinition) int {
	if c.Context.MinChunkTokens <= 0 {
		return 0
	}
	return int(math.Floor(float64(model.ContextSize) * c.Context.ContextFileRatio / float64(c.Context.MinChunkTokens)))
}

// PrefixCacheTTL converts the configured TTL to a duration.
func (c *Config) PrefixCacheTTL() time.Duration {
	return time.Duration(c.Cache.APIContextCacheTTL) * time.Second
}
