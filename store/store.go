package store

import (
	"context"
	"time"

	"github.com/inspol/policyrag/schema"
)

// Filters narrow searches to active documents of a given type and, when set,
// to an exact clause number.
type Filters struct {
	DocumentType string
	ClauseNumber string
}

// Adjacent groups the neighbors of a pivot chunk, ordered away from the
// pivot flipped back to ascending chunk_index (prev oldest-first).
type Adjacent struct {
	Prev []schema.AnnotatedChunk
	Next []schema.AnnotatedChunk
}

// ChunkStore is the read interface the QA core consumes. Ingestion owns the
// write side.
type ChunkStore interface {
	// SearchVectors runs a cosine-similarity search over chunk embeddings,
	// keeping hits with similarity strictly above threshold, descending.
	SearchVectors(ctx context.Context, queryEmbedding []float32, threshold float64, limit int, f Filters) ([]schema.AnnotatedChunk, error)
	// FTSSearch runs a ranked full-text search with a prepared tsquery string.
	FTSSearch(ctx context.Context, tsquery string, limit int, f Filters) ([]schema.AnnotatedChunk, error)
	// GetAdjacent loads up to limit chunks on each requested side of a pivot.
	GetAdjacent(ctx context.Context, chunkID int64, direction schema.ExpandDirection, limit int) (Adjacent, error)
	// GetByIDs loads chunks by id, annotated with their document rows.
	GetByIDs(ctx context.Context, ids []int64) ([]schema.AnnotatedChunk, error)
	// ClauseNumbersExist reports which of the given clause strings occur in
	// active documents.
	ClauseNumbersExist(ctx context.Context, clauses []string) (map[string]bool, error)
}

// SearchLogEntry is one append-only record per search.
type SearchLogEntry struct {
	UserID         *int64
	Query          string
	QueryIntent    string
	SearchType     string // vector | keyword | hybrid
	ResultsCount   int
	TopSimilarity  float64
	ResponseTimeMS int64
	CreatedAt      time.Time
}

// SearchLogSink records search events. Implementations must swallow their own
// failures; logging never fails a request.
type SearchLogSink interface {
	Log(ctx context.Context, entry SearchLogEntry)
}

// NopLogSink discards entries; used in tests.
type NopLogSink struct{}

// Log implements SearchLogSink.
func (NopLogSink) Log(context.Context, SearchLogEntry) {}
