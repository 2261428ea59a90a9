package providers

import (
	"context"
)

// EmbeddingProvider turns free text into a dense vector
type EmbeddingProvider interface {
	// Embed returns the embedding of a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the length of every vector Embed produces
	Dimensions() int
}
