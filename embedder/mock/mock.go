// Package mock provides a deterministic embedder for tests and examples.
package mock

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/ragmem/memvec/embedder"
)

// DefaultDimensions matches all-MiniLM-L6-v2.
const DefaultDimensions = 384

// Embedder generates deterministic embeddings from a text hash.
// Identical text always maps to the identical unit vector, so recall
// of a remembered text returns it with score 1.
type Embedder struct {
	dimensions int
}

var _ embedder.Embedder = (*Embedder)(nil)

// Options configure the mock embedder.
type Options struct {
	Dimensions int
}

// New creates a mock embedder.
func New(optFns ...func(o *Options)) *Embedder {
	opts := Options{
		Dimensions: DefaultDimensions,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Embedder{dimensions: opts.Dimensions}
}

// Embed creates a deterministic unit vector from text.
func (m *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))

	// LCG seeded by the text hash fills the vector with values in [-1, 1].
	seed := h.Sum64()
	vec := make([]float32, m.dimensions)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	normalize(vec)
	return vec, nil
}

// Dimensions returns the embedding size.
func (m *Embedder) Dimensions() int {
	return m.dimensions
}

func normalize(vec []float32) {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}

	norm = float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] /= norm
	}
}
