package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dirctx/internal/domain"
)

func TestNearestNeighborsOrdersByDistance(t *testing.T) {
	idx := NewFlat()
	require.NoError(t, idx.Add(0, []float32{1, 0}))
	require.NoError(t, idx.Add(1, []float32{0, 1}))
	require.NoError(t, idx.Add(2, []float32{1, 1}))
	require.NoError(t, idx.Add(3, []float32{-1, 0}))

	got, err := idx.NearestNeighbors(context.Background(), []float32{2, 0}, 10, 2)

	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []int{0, 2, 1, 3}, []int{got[0].Ref, got[1].Ref, got[2].Ref, got[3].Ref})
	assert.InDelta(t, 0, got[0].Distance, 1e-9)
	assert.InDelta(t, 2, got[3].Distance, 1e-9)
}

func TestNearestNeighborsRespectsRangeAndK(t *testing.T) {
	idx := NewFlat()
	require.NoError(t, idx.Add(0, []float32{1, 0}))
	require.NoError(t, idx.Add(1, []float32{1, 1}))
	require.NoError(t, idx.Add(2, []float32{0, 1}))

	got, err := idx.NearestNeighbors(context.Background(), []float32{1, 0}, 10, 0.5)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = idx.NearestNeighbors(context.Background(), []float32{1, 0}, 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Ref)
}

func TestDimensionMismatch(t *testing.T) {
	idx := NewFlat()
	require.NoError(t, idx.Add(0, []float32{1, 0, 0}))

	_, err := idx.NearestNeighbors(context.Background(), []float32{1, 0}, 5, 2)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.ErrorIs(t, idx.Add(1, []float32{1}), domain.ErrDimensionMismatch)
}

func TestRemoveAndEmpty(t *testing.T) {
	idx := NewFlat()
	got, err := idx.NearestNeighbors(context.Background(), []float32{1}, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, idx.Add(7, []float32{1, 0}))
	idx.Remove(7, 99)
	assert.Zero(t, idx.Len())
	assert.Zero(t, idx.Dimension())

	require.NoError(t, idx.Add(8, []float32{1, 0, 0, 0}), "empty index accepts a new dimension")
	assert.Equal(t, 4, idx.Dimension())
}
