package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEmpty(t *testing.T) {
	idx, err := Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 0, idx.Dim())

	hits, err := idx.Search([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBuildAssignsIDsInOrder(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}}
	idx, err := Build(vectors)
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())
	require.Equal(t, 2, idx.Dim())
	for i, v := range vectors {
		assert.Equal(t, v, idx.Vector(i))
	}
}

func TestBuildDimensionMismatch(t *testing.T) {
	_, err := Build([][]float32{{1, 2, 3}, {1, 2}})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Build([][]float32{{}})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearchSelfNearest(t *testing.T) {
	vectors := [][]float32{
		{0.1, 0.9, -0.3},
		{1.5, 0.0, 2.25},
		{-0.7, 0.7, 0.1},
		{0.0, 0.0, 0.0},
	}
	idx, err := Build(vectors)
	require.NoError(t, err)

	for i := range vectors {
		hits, err := idx.Search(vectors[i], 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, i, hits[0].ID)
		assert.Equal(t, float32(0), hits[0].Distance)
	}
}

func TestSearchOrdersByDistanceThenID(t *testing.T) {
	// ids 1 and 2 are equidistant from the query; ascending id breaks the tie.
	idx, err := Build([][]float32{{0, 0}, {1, 0}, {-1, 0}, {2, 0}})
	require.NoError(t, err)

	hits, err := idx.Search([]float32{0, 0}, 4)
	require.NoError(t, err)
	require.Len(t, hits, 4)
	assert.Equal(t, 0, hits[0].ID)
	assert.Equal(t, 1, hits[1].ID)
	assert.Equal(t, 2, hits[2].ID)
	assert.Equal(t, 3, hits[3].ID)
	assert.Equal(t, hits[1].Distance, hits[2].Distance)
}

func TestSearchScenario(t *testing.T) {
	idx, err := Build([][]float32{{1, 0}, {0, 1}, {0.9, 0.1}})
	require.NoError(t, err)

	hits, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, 0, hits[0].ID)
	assert.Equal(t, float32(0), hits[0].Distance)
	assert.Equal(t, 2, hits[1].ID)
	assert.InDelta(t, 0.02, hits[1].Distance, 1e-6)
	assert.Equal(t, 1, hits[2].ID)
	assert.InDelta(t, 2.0, hits[2].Distance, 1e-6)
}

func TestSearchBounds(t *testing.T) {
	idx, err := Build([][]float32{{1}, {2}})
	require.NoError(t, err)

	hits, err := idx.Search([]float32{0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	_, err = idx.Search([]float32{0}, 0)
	require.Error(t, err)

	_, err = idx.Search([]float32{0, 0}, 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}
