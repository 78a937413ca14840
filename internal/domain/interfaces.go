package domain

import "context"

// Document is a single unit of extracted text handed to the ingestion
// pipeline. Paginated sources (e.g. PDF extractions) produce one Document
// per page; plain files produce a single Document with Page 1.
type Document struct {
	Source string
	Page   int
	Text   string
}

// Chunk is a bounded-length passage of one document, carrying the
// provenance of the document it was cut from.
type Chunk struct {
	Text   string
	Source string
	Page   int
}

// QueryResult is a matching chunk with its similarity score.
type QueryResult struct {
	Text   string
	Source string
	Page   int
	Score  float64
}

// Splitter cuts a document's text into ordered, size-bounded chunks.
type Splitter interface {
	Split(text string) []string
}

// Embedder converts a batch of texts into vectors, one per input text and
// in input order. All vectors returned by one embedder share a single
// dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Engine defines the operations exposed by the application core.
type Engine interface {
	BuildIndex(ctx context.Context, docs []Document) error
	SaveIndex(path string) error
	LoadIndex(path string) error
	Query(ctx context.Context, text string, minScore float64, maxResults int) ([]QueryResult, error)
}
