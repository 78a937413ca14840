package store

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simsearch/internal/domain"
	"simsearch/internal/index"
)

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		{Text: "the first passage", Source: "report.txt", Page: 1},
		{Text: "texte accentué, déjà vu", Source: "notes élèves.md", Page: 2},
		{Text: "", Source: "empty.txt", Page: 17},
	}
}

func testVectors() [][]float32 {
	return [][]float32{
		{0.1, -0.25, 1e-7},
		{math.MaxFloat32, math.SmallestNonzeroFloat32, -0.0},
		{float32(math.Pi), -1, 0.333333},
	}
}

func TestRoundTrip(t *testing.T) {
	idx, err := index.Build(testVectors())
	require.NoError(t, err)
	chunks := testChunks()
	path := filepath.Join(t.TempDir(), "index.bin")

	require.NoError(t, Save(idx, chunks, path))

	loaded, loadedChunks, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, idx.Len(), loaded.Len())
	require.Equal(t, idx.Dim(), loaded.Dim())
	for i := 0; i < idx.Len(); i++ {
		assert.Equal(t, idx.Vector(i), loaded.Vector(i), "vector %d must round-trip bit-exactly", i)
	}
	assert.Equal(t, chunks, loadedChunks)
}

func TestRoundTripEmpty(t *testing.T) {
	idx, err := index.Build(nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "index.bin")

	require.NoError(t, Save(idx, nil, path))

	loaded, chunks, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
	assert.Empty(t, chunks)
}

func TestSaveRejectsMisalignedChunks(t *testing.T) {
	idx, err := index.Build([][]float32{{1, 2}})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "index.bin")

	err = Save(idx, testChunks(), path)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no artifact may be written on failure")
}

func TestSaveIsAtomic(t *testing.T) {
	idx, err := index.Build(testVectors())
	require.NoError(t, err)
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")

	require.NoError(t, Save(idx, testChunks(), path))
	// Overwriting an existing artifact must also succeed.
	require.NoError(t, Save(idx, testChunks(), path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files may remain")
	assert.Equal(t, "index.bin", entries[0].Name())
}

func TestLoadNotFound(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.bin"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.bin")
	idx, err := index.Build(testVectors())
	require.NoError(t, err)
	require.NoError(t, Save(idx, testChunks(), valid))
	data, err := os.ReadFile(valid)
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		p := filepath.Join(dir, "garbage.bin")
		require.NoError(t, os.WriteFile(p, []byte("not an index artifact"), 0o644))
		_, _, err := Load(p)
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("short", func(t *testing.T) {
		p := filepath.Join(dir, "short.bin")
		require.NoError(t, os.WriteFile(p, data[:8], 0o644))
		_, _, err := Load(p)
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("truncated body", func(t *testing.T) {
		p := filepath.Join(dir, "truncated.bin")
		require.NoError(t, os.WriteFile(p, data[:len(data)-5], 0o644))
		_, _, err := Load(p)
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("flipped byte", func(t *testing.T) {
		p := filepath.Join(dir, "flipped.bin")
		mutated := append([]byte(nil), data...)
		mutated[len(mutated)-1] ^= 0xFF
		require.NoError(t, os.WriteFile(p, mutated, 0o644))
		_, _, err := Load(p)
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("bad magic", func(t *testing.T) {
		p := filepath.Join(dir, "magic.bin")
		mutated := append([]byte(nil), data...)
		mutated[0] = 'X'
		require.NoError(t, os.WriteFile(p, mutated, 0o644))
		_, _, err := Load(p)
		require.ErrorIs(t, err, ErrCorrupt)
	})
}
