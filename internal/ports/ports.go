// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the context-assembly core and
// external adapters (infrastructure). The core packages under
// internal/application depend only on these interfaces; concrete embedding,
// completion, index and storage implementations live in internal/infrastructure.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., Embedder, UsageHistoryStore)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: the pipeline depends on abstractions, not implementations
package ports

import (
	"context"
	"time"

	"github.com/doeshing/dirctx/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.dirctx/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// Embedder turns text into a vector for the semantic index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TokenCounter counts tokens the way the target model does.
type TokenCounter interface {
	CountTokens(text string, role domain.Role) int
}

// VectorIndex answers range-bounded nearest-neighbor queries, closest first.
// Implementations return an error wrapping domain.ErrDimensionMismatch when the
// query vector does not match the indexed dimensionality.
type VectorIndex interface {
	NearestNeighbors(ctx context.Context, vector []float32, maxK int, maxDistance float64) ([]domain.Neighbor, error)
}

// ArtifactReader resolves index refs and artifact ids against the live store.
// A miss means the artifact was retracted and is not an error.
type ArtifactReader interface {
	ByRef(ref int) (domain.Artifact, bool)
	ByID(id string) (domain.Artifact, bool)
}

// ArtifactWriter replaces the artifacts of one source file.
type ArtifactWriter interface {
	// ReplaceFile retracts every artifact of path and stores the new chunks.
	// It returns the retracted refs and the refs assigned to chunks, in order.
	ReplaceFile(path string, chunks []domain.Artifact) (removed []int, added []int)
}

// IndexWriter mutates the vector index.
type IndexWriter interface {
	Add(ref int, vector []float32) error
	Remove(refs ...int)
	Dimension() int
}

// CompletionStream yields text deltas until io.EOF.
type CompletionStream interface {
	Recv() (string, error)
	Close() error
}

// Completer sends a conversation to a chat model.
type Completer interface {
	Complete(ctx context.Context, messages []domain.Message) (CompletionStream, error)
}

// ProviderFactory builds model adapters from model definitions.
type ProviderFactory interface {
	Completer(domain.ModelDefinition) (Completer, error)
	TokenCounter(domain.ModelDefinition) (TokenCounter, error)
	Embedder(domain.EmbeddingSettings) (Embedder, error)
}

// UsageHistoryStore is the append-only log of accepted turns.
type UsageHistoryStore interface {
	RecordPrompt(ctx context.Context, sessionID, prompt string, artifacts []string) error
	AllHistory(ctx context.Context) ([]domain.PromptHistoryEntry, error)
	MetadataFromHistory(ctx context.Context) (map[string]domain.ArtifactMetadata, error)
	Clear(ctx context.Context) error
	Close() error
}

// PrefixCacheStore tracks artifact sequences believed to be warm in the
// provider's prompt cache.
type PrefixCacheStore interface {
	// NonExpiredPrefixes deletes entries at least ttl old and returns the rest.
	NonExpiredPrefixes(ctx context.Context) ([]domain.PrefixCacheEntry, error)
	RecordPrefixHit(ctx context.Context, key domain.PrefixKey) error
	Clear(ctx context.Context) error
	Close() error
}

// IndexCache stores per-file chunk and embedding results between runs.
type IndexCache interface {
	Get(key string) (domain.IndexCacheEntry, bool, error)
	Set(entry domain.IndexCacheEntry) error
	Clear() error
}

// Metrics records pipeline outcomes.
type Metrics interface {
	ObserveTurn(outcome string)
	ObservePrefix(matched bool)
	ObservePackedTokens(tokens int)
	ObserveTruncation()
	ObserveIndexedFiles(n int, elapsed time.Duration)
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
