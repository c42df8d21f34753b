package search

// Options narrow and size a search call.
type Options struct {
	// Threshold is the minimum cosine similarity for vector hits.
	Threshold float64
	// Limit caps the number of returned results.
	Limit int
	// DocumentType and ClauseNumber are optional equality filters.
	DocumentType string
	ClauseNumber string
	// UserID is attached to the search log entry when present.
	UserID *int64
}
