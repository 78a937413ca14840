// Package service wires the splitter, embedder, index and store into the
// ingestion pipeline and the query engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"simsearch/internal/domain"
	"simsearch/internal/embedding"
	"simsearch/internal/index"
	"simsearch/internal/store"
)

var (
	// ErrInvalidArgument reports query parameters outside their valid range.
	ErrInvalidArgument = errors.New("service: invalid query argument")
	// ErrIndexNotLoaded reports an operation that needs an index before one
	// was built or loaded.
	ErrIndexNotLoaded = errors.New("service: no index loaded")
)

// snapshot pairs an index with the chunk array its ids point into. Readers
// take one snapshot for a whole query, so a concurrent rebuild can never
// mix old vectors with new metadata.
type snapshot struct {
	idx    *index.Flat
	chunks []domain.Chunk
}

// Options tunes the ingestion pipeline.
type Options struct {
	// BatchSize is the number of chunk texts per embedding call.
	BatchSize int
	// Workers caps concurrent embedding calls.
	Workers int
	// Progress, if set, is called during embedding with (done, total).
	Progress func(done, total int)
}

// Engine implements domain.Engine. A built or loaded index is immutable;
// any number of Query calls may run concurrently with each other and with
// a rebuild.
type Engine struct {
	splitter domain.Splitter
	embedder domain.Embedder
	opts     Options
	current  atomic.Pointer[snapshot]
}

// New creates an Engine around the given splitter and embedder.
func New(splitter domain.Splitter, embedder domain.Embedder, opts Options) *Engine {
	return &Engine{splitter: splitter, embedder: embedder, opts: opts}
}

// BuildIndex splits docs into chunks, embeds every chunk and builds a fresh
// index, replacing any previously held one in a single swap. Chunk ids are
// assigned in document order, then chunk order within each document, so a
// rebuild over the same input is reproducible regardless of how many
// embedding workers ran.
func (e *Engine) BuildIndex(ctx context.Context, docs []domain.Document) error {
	chunks := e.chunkAll(docs)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := embedding.EmbedAll(ctx, e.embedder, texts, e.opts.BatchSize, e.opts.Workers, e.opts.Progress)
	if err != nil {
		return err
	}
	idx, err := index.Build(vectors)
	if err != nil {
		return err
	}
	e.current.Store(&snapshot{idx: idx, chunks: chunks})
	return nil
}

func (e *Engine) chunkAll(docs []domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for _, d := range docs {
		for _, text := range e.splitter.Split(d.Text) {
			chunks = append(chunks, domain.Chunk{Text: text, Source: d.Source, Page: d.Page})
		}
	}
	return chunks
}

// SaveIndex persists the current index and chunk array to path.
func (e *Engine) SaveIndex(path string) error {
	snap := e.current.Load()
	if snap == nil {
		return ErrIndexNotLoaded
	}
	return store.Save(snap.idx, snap.chunks, path)
}

// LoadIndex reads an index artifact and swaps it in. The swap happens only
// after a fully successful load; on error the previous index stays active.
func (e *Engine) LoadIndex(path string) error {
	idx, chunks, err := store.Load(path)
	if err != nil {
		return err
	}
	e.current.Store(&snapshot{idx: idx, chunks: chunks})
	return nil
}

// Size returns the number of indexed chunks.
func (e *Engine) Size() int {
	snap := e.current.Load()
	if snap == nil {
		return 0
	}
	return snap.idx.Len()
}

// Query embeds text, searches the index for the maxResults nearest chunks
// and returns those scoring at least minScore, best first.
//
// The score is 1 - d/2 where d is the squared Euclidean distance. For
// unit-normalized embeddings this equals the cosine similarity, so it lies
// in [-1, 1]; embedders that do not normalize can produce scores outside
// that range.
func (e *Engine) Query(ctx context.Context, text string, minScore float64, maxResults int) ([]domain.QueryResult, error) {
	if minScore < 0 || minScore > 1 {
		return nil, fmt.Errorf("%w: min score %v outside [0, 1]", ErrInvalidArgument, minScore)
	}
	if maxResults <= 0 {
		return nil, fmt.Errorf("%w: max results must be positive, got %d", ErrInvalidArgument, maxResults)
	}
	snap := e.current.Load()
	if snap == nil {
		return nil, ErrIndexNotLoaded
	}
	if snap.idx.Len() == 0 {
		return nil, nil
	}
	vectors, err := e.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for query", embedding.ErrEmbed, len(vectors))
	}
	hits, err := snap.idx.Search(vectors[0], maxResults)
	if err != nil {
		return nil, err
	}
	results := make([]domain.QueryResult, 0, len(hits))
	for _, h := range hits {
		score := 1 - float64(h.Distance)/2
		if score < minScore {
			continue
		}
		c := snap.chunks[h.ID]
		results = append(results, domain.QueryResult{Text: c.Text, Source: c.Source, Page: c.Page, Score: score})
	}
	// Hits arrive in ascending distance order, which is already descending
	// score order; the stable sort keeps equal scores in ascending-id order.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}
