// Package ai adapts OpenAI-compatible endpoints to the completion, embedding
// and token counting ports.
//
// Every model in the config file is an OpenAI-compatible endpoint:
//   - Completer: streaming chat completions with bounded retries
//   - Embedder: the embeddings endpoint of the configured embedding model
//   - TokenCounter: tiktoken encodings, with a character estimate when the
//     encoding cannot be loaded
package ai

import (
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/ports"
)

// Factory creates model adapters. It shares one HTTP client across them.
type Factory struct {
	httpClient *http.Client
	logger     ports.Logger
	retryDelay time.Duration
}

// NewFactory creates a factory with a configured HTTP client.
func NewFactory(logger ports.Logger) *Factory {
	return &Factory{
		httpClient: &http.Client{Timeout: domain.DefaultHTTPClientTimeout},
		logger:     logger,
		retryDelay: domain.DefaultRetryDelay,
	}
}

// WithHTTPClient replaces the shared HTTP client.
func (f *Factory) WithHTTPClient(client *http.Client) *Factory {
	f.httpClient = client
	return f
}

// WithRetryDelay replaces the pause between completion retries.
func (f *Factory) WithRetryDelay(delay time.Duration) *Factory {
	f.retryDelay = delay
	return f
}

// Completer builds a streaming chat client for model.
func (f *Factory) Completer(model domain.ModelDefinition) (ports.Completer, error) {
	retries := model.MaxRetries
	if retries == 0 {
		retries = domain.DefaultCompletionRetries
	}
	return &completer{
		client:  f.client(model.Endpoint, model.AuthEnvVar),
		model:   model,
		retries: retries,
		delay:   f.retryDelay,
		logger:  f.logger,
	}, nil
}

// Embedder builds an embedding client.
func (f *Factory) Embedder(settings domain.EmbeddingSettings) (ports.Embedder, error) {
	return &embedder{
		client: f.client(settings.Endpoint, settings.AuthEnvVar),
		model:  openai.EmbeddingModel(settings.ModelID),
	}, nil
}

// TokenCounter builds a tiktoken counter for model.
func (f *Factory) TokenCounter(model domain.ModelDefinition) (ports.TokenCounter, error) {
	return NewTiktokenCounter(model.ModelID, model.Encoding, f.logger), nil
}

func (f *Factory) client(endpoint, authEnv string) *openai.Client {
	cfg := openai.DefaultConfig(resolveAuth(authEnv, "OPENAI_API_KEY"))
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}
	cfg.HTTPClient = f.httpClient
	return openai.NewClientWithConfig(cfg)
}

var _ ports.ProviderFactory = (*Factory)(nil)
