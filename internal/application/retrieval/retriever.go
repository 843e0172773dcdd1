// Package retrieval produces the relevance-ranked candidate pool for a query.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/ports"
)

// Retriever embeds queries and resolves index hits against the artifact store.
type Retriever struct {
	embedder  ports.Embedder
	index     ports.VectorIndex
	artifacts ports.ArtifactReader
	logger    ports.Logger
	queries   *lru.Cache[string, []float32]
}

// New builds a Retriever caching up to cacheSize query embeddings.
func New(embedder ports.Embedder, index ports.VectorIndex, artifacts ports.ArtifactReader, cacheSize int, logger ports.Logger) (*Retriever, error) {
	if cacheSize <= 0 {
		cacheSize = domain.DefaultQueryCacheSize
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	return &Retriever{
		embedder:  embedder,
		index:     index,
		artifacts: artifacts,
		logger:    logger,
		queries:   cache,
	}, nil
}

// Retrieve returns up to maxK artifacts within maxDistance of query, closest
// first. Refs the artifact store no longer holds are skipped.
func (r *Retriever) Retrieve(ctx context.Context, query string, maxK int, maxDistance float64) ([]domain.Candidate, error) {
	if maxK <= 0 {
		return nil, nil
	}

	vector, err := r.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	neighbors, err := r.index.NearestNeighbors(ctx, vector, maxK, maxDistance)
	if err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			return nil, fmt.Errorf("%w: %w", domain.ErrReindexRequired, err)
		}
		return nil, fmt.Errorf("search index: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(neighbors))
	missing := 0
	for _, n := range neighbors {
		artifact, ok := r.artifacts.ByRef(n.Ref)
		if !ok {
			missing++
			continue
		}
		candidates = append(candidates, domain.Candidate{Artifact: artifact, Distance: n.Distance})
	}

	r.logger.Debug("retrieved candidates", map[string]interface{}{
		"neighbors":    len(neighbors),
		"candidates":   len(candidates),
		"missing":      missing,
		"max_k":        maxK,
		"max_distance": maxDistance,
	})
	return candidates, nil
}

func (r *Retriever) embed(ctx context.Context, query string) ([]float32, error) {
	if vector, ok := r.queries.Get(query); ok {
		return vector, nil
	}
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	r.queries.Add(query, vector)
	return vector, nil
}

// Pool keeps candidates in relevance order until their tokens reach
// CandidatePoolMultiplier times budget. Identical artifacts collapse to the
// closest occurrence.
func Pool(candidates []domain.Candidate, budget int) []domain.Candidate {
	limit := budget * domain.CandidatePoolMultiplier
	seen := make(map[string]struct{}, len(candidates))
	pool := make([]domain.Candidate, 0, len(candidates))
	tokens := 0
	for _, c := range candidates {
		if tokens >= limit {
			break
		}
		if _, dup := seen[c.Artifact.ID()]; dup {
			continue
		}
		seen[c.Artifact.ID()] = struct{}{}
		pool = append(pool, c)
		tokens += c.Artifact.Tokens
	}
	return pool
}
