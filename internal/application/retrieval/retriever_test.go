package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/pkg/logger"
)

type stubEmbedder struct {
	calls int
	err   error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type stubIndex struct {
	neighbors []domain.Neighbor
	err       error
	gotK      int
	gotDist   float64
}

func (s *stubIndex) NearestNeighbors(_ context.Context, _ []float32, maxK int, maxDistance float64) ([]domain.Neighbor, error) {
	s.gotK, s.gotDist = maxK, maxDistance
	return s.neighbors, s.err
}

type stubArtifacts map[int]domain.Artifact

func (s stubArtifacts) ByRef(ref int) (domain.Artifact, bool) {
	a, ok := s[ref]
	return a, ok
}

func (s stubArtifacts) ByID(id string) (domain.Artifact, bool) {
	for _, a := range s {
		if a.ID() == id {
			return a, true
		}
	}
	return domain.Artifact{}, false
}

func newRetriever(t *testing.T, emb *stubEmbedder, idx *stubIndex, arts stubArtifacts) *Retriever {
	t.Helper()
	r, err := New(emb, idx, arts, 4, logger.NewNop())
	require.NoError(t, err)
	return r
}

func TestRetrieveMapsRefsAndSkipsMisses(t *testing.T) {
	idx := &stubIndex{neighbors: []domain.Neighbor{{Ref: 2, Distance: 0.1}, {Ref: 9, Distance: 0.2}, {Ref: 0, Distance: 0.4}}}
	arts := stubArtifacts{0: {Text: "zero", Tokens: 3}, 2: {Text: "two", Tokens: 5}}
	r := newRetriever(t, &stubEmbedder{}, idx, arts)

	got, err := r.Retrieve(context.Background(), "query", 10, 0.8)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Artifact.ID())
	assert.Equal(t, "zero", got[1].Artifact.ID())
	assert.Equal(t, 10, idx.gotK)
	assert.Equal(t, 0.8, idx.gotDist)
}

func TestRetrieveCachesQueryEmbeddings(t *testing.T) {
	emb := &stubEmbedder{}
	r := newRetriever(t, emb, &stubIndex{}, stubArtifacts{})

	for i := 0; i < 3; i++ {
		_, err := r.Retrieve(context.Background(), "same", 5, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, emb.calls)
}

func TestRetrieveDimensionMismatchRequiresReindex(t *testing.T) {
	idx := &stubIndex{err: fmt.Errorf("query has 3 dims, index has 2: %w", domain.ErrDimensionMismatch)}
	r := newRetriever(t, &stubEmbedder{}, idx, stubArtifacts{})

	_, err := r.Retrieve(context.Background(), "q", 5, 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReindexRequired)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "query has 3 dims")
}

func TestRetrievePropagatesEmbedErrors(t *testing.T) {
	boom := errors.New("boom")
	r := newRetriever(t, &stubEmbedder{err: boom}, &stubIndex{}, stubArtifacts{})

	_, err := r.Retrieve(context.Background(), "q", 5, 1)

	assert.ErrorIs(t, err, boom)
}

func TestRetrieveZeroK(t *testing.T) {
	emb := &stubEmbedder{}
	r := newRetriever(t, emb, &stubIndex{}, stubArtifacts{})

	got, err := r.Retrieve(context.Background(), "q", 0, 1)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, emb.calls)
}

func TestPoolStopsAtMultipleOfBudget(t *testing.T) {
	var candidates []domain.Candidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates, domain.Candidate{
			Artifact: domain.Artifact{Text: fmt.Sprintf("c%d", i), Tokens: 10},
			Distance: float64(i),
		})
	}

	pool := Pool(candidates, 20)

	require.Len(t, pool, 6)
	assert.Equal(t, "c0", pool[0].Artifact.ID())
	assert.Equal(t, "c5", pool[5].Artifact.ID())
}

func TestPoolCollapsesIdenticalArtifacts(t *testing.T) {
	candidates := []domain.Candidate{
		{Artifact: domain.Artifact{Text: "same", Tokens: 1}, Distance: 0.1},
		{Artifact: domain.Artifact{Text: "same", Tokens: 1}, Distance: 0.2},
		{Artifact: domain.Artifact{Text: "other", Tokens: 1}, Distance: 0.3},
	}

	pool := Pool(candidates, 100)

	require.Len(t, pool, 2)
	assert.Equal(t, 0.1, pool[0].Distance)
}
