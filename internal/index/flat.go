package index

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDimensionMismatch reports vectors of inconsistent length, either among
// the vectors an index is built from or between a query and the index.
var ErrDimensionMismatch = errors.New("index: dimension mismatch")

// Result is one search hit: the dense id assigned at build time and the
// squared Euclidean distance to the query.
type Result struct {
	ID       int
	Distance float32
}

// Flat is an exact nearest-neighbor index over a fixed set of vectors.
// Ids are dense, 0-based and assigned in insertion order. Every stored
// vector is scanned on each search, so results are exact and deterministic.
//
// A Flat index is immutable after Build and safe for concurrent searches.
type Flat struct {
	dim  int
	data []float32 // row-major, len = n*dim
}

// Build creates an index from vectors, assigning ids 0..n-1 in input order.
// An empty input yields a valid empty index. All vectors must share one
// length; otherwise Build fails with ErrDimensionMismatch.
func Build(vectors [][]float32) (*Flat, error) {
	if len(vectors) == 0 {
		return &Flat{}, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: vector 0 is empty", ErrDimensionMismatch)
	}
	data := make([]float32, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has length %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		data = append(data, v...)
	}
	return &Flat{dim: dim, data: data}, nil
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Dim returns the vector dimension, or 0 for an empty index.
func (f *Flat) Dim() int { return f.dim }

// Vector returns the stored vector for id i. The returned slice aliases the
// index's backing array and must not be modified.
func (f *Flat) Vector(i int) []float32 {
	return f.data[i*f.dim : (i+1)*f.dim]
}

// Search returns up to k stored vectors nearest to query by squared
// Euclidean distance, ascending, with equal distances ordered by ascending
// id. Searching an empty index returns no results.
func (f *Flat) Search(query []float32, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("index: k must be positive, got %d", k)
	}
	n := f.Len()
	if n == 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has length %d, index has %d", ErrDimensionMismatch, len(query), f.dim)
	}
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		results[i] = Result{ID: i, Distance: squaredL2(query, f.Vector(i))}
	}
	// Stable sort keeps ascending-id order for equal distances.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if k < n {
		results = results[:k]
	}
	return results, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
