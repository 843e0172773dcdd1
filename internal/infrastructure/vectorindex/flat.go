// Package vectorindex implements an exact cosine-distance index.
package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/ports"
)

// Flat scans every vector on each query. Distances are 1 - cosine similarity,
// so they range over [0, 2].
type Flat struct {
	mu      sync.RWMutex
	dim     int
	vectors map[int][]float64
}

// NewFlat returns an empty index. The dimension is fixed by the first Add.
func NewFlat() *Flat {
	return &Flat{vectors: make(map[int][]float64)}
}

// Add stores the normalized vector under ref.
func (f *Flat) Add(ref int, vector []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dim == 0 || len(f.vectors) == 0 {
		f.dim = len(vector)
	}
	if len(vector) != f.dim {
		return fmt.Errorf("add ref %d: vector has %d dims, index has %d: %w", ref, len(vector), f.dim, domain.ErrDimensionMismatch)
	}
	f.vectors[ref] = normalize(vector)
	return nil
}

// Remove drops refs; unknown refs are ignored.
func (f *Flat) Remove(refs ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ref := range refs {
		delete(f.vectors, ref)
	}
}

// Dimension is the indexed dimensionality, 0 when empty.
func (f *Flat) Dimension() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.vectors) == 0 {
		return 0
	}
	return f.dim
}

// Len is the number of indexed vectors.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// NearestNeighbors returns up to maxK refs within maxDistance, closest first.
// Equal distances are ordered by ref.
func (f *Flat) NearestNeighbors(ctx context.Context, vector []float32, maxK int, maxDistance float64) ([]domain.Neighbor, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.vectors) == 0 || maxK <= 0 {
		return nil, nil
	}
	if len(vector) != f.dim {
		return nil, fmt.Errorf("query has %d dims, index has %d: %w", len(vector), f.dim, domain.ErrDimensionMismatch)
	}

	query := normalize(vector)
	hits := make([]domain.Neighbor, 0, len(f.vectors))
	for ref, v := range f.vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := 1 - floats.Dot(query, v)
		if d <= maxDistance {
			hits = append(hits, domain.Neighbor{Ref: ref, Distance: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Ref < hits[j].Ref
	})
	if len(hits) > maxK {
		hits = hits[:maxK]
	}
	return hits, nil
}

func normalize(vector []float32) []float64 {
	out := make([]float64, len(vector))
	for i, x := range vector {
		out[i] = float64(x)
	}
	if norm := floats.Norm(out, 2); norm > 0 {
		floats.Scale(1/norm, out)
	}
	return out
}

var (
	_ ports.VectorIndex = (*Flat)(nil)
	_ ports.IndexWriter = (*Flat)(nil)
)
