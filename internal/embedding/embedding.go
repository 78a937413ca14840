// Package embedding adapts external embedding functions to the ingestion
// and query pipeline.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"simsearch/internal/domain"
)

// ErrEmbed reports a failed external embedding call. The whole batch in
// progress fails; no partial results are returned.
var ErrEmbed = errors.New("embedding: embed call failed")

const (
	defaultBatchSize = 32
	defaultWorkers   = 4
)

// EmbedAll embeds texts in fixed-size batches running concurrently under a
// worker limit. Results are written back by batch offset, so the returned
// vectors are always in input order no matter how the batches interleave.
// progress, if non-nil, is called after each completed batch with the number
// of texts embedded so far and the total.
func EmbedAll(ctx context.Context, e domain.Embedder, texts []string, batchSize, workers int, progress func(done, total int)) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	out := make([][]float32, len(texts))
	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(texts); start += batchSize {
		start := start
		end := min(start+batchSize, len(texts))
		g.Go(func() error {
			vectors, err := e.Embed(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vectors) != end-start {
				return fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbed, len(vectors), end-start)
			}
			copy(out[start:end], vectors)
			if progress != nil {
				mu.Lock()
				done += end - start
				progress(done, len(texts))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
