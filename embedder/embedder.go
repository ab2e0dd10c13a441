// Package embedder defines the text embedding contract the memory facade
// builds on.
package embedder

import "context"

// Embedder converts text into a fixed-dimension vector.
// Implementations must return vectors of exactly Dimensions() length.
type Embedder interface {
	// Embed converts text into an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding size.
	Dimensions() int
}
