// Package domain defines core entities and value objects for dirctx.
//
// This file contains the chat model definitions declared in the config file.
// The domain layer is independent of infrastructure concerns.
package domain

// ModelDefinition describes an OpenAI-compatible chat endpoint.
type ModelDefinition struct {
	Name       string `yaml:"name" validate:"required"`
	Endpoint   string `yaml:"endpoint"`
	AuthEnvVar string `yaml:"auth_env_var"`
	ModelID    string `yaml:"model_id" validate:"required"`

	// ContextSize is the model context window in tokens.
	ContextSize int `yaml:"context_size" validate:"gt=0"`
	MaxTokens   int `yaml:"max_tokens" validate:"gte=0"`

	// Encoding selects the tiktoken encoding used for counting; empty derives it
	// from ModelID.
	Encoding   string `yaml:"encoding,omitempty"`
	MaxRetries int    `yaml:"max_retries" validate:"gte=0"`
}
