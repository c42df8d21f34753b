package embedding

import "context"

// Provider produces dense vectors for queries and chunks. Implementations
// must not raise retrieval-side failures into callers: a failing entry comes
// back as a zero vector and is logged.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// IsZero reports whether a vector is the all-zero failure sentinel.
func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
