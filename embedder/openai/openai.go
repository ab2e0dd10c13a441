// Package openai implements embedder.Embedder using the OpenAI Embeddings
// API via the official client.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/ragmem/memvec/embedder"
)

// Options configure the OpenAI embedder.
// Fields mirror a subset of the Embeddings API parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	// Model is the embedding model to use.
	Model openai.EmbeddingModel

	// Dimensions is the requested embedding size. Models from
	// text-embedding-3 onward support shortening; zero sends no override
	// and uses the model's native size.
	Dimensions int
}

// Embedder wraps the OpenAI Embeddings API behind the embedder.Embedder
// interface.
type Embedder struct {
	client *openai.Client
	opts   Options
}

var _ embedder.Embedder = (*Embedder)(nil)

// New creates an OpenAI embedder using the official client, configured from
// the environment (OPENAI_API_KEY).
func New(optFns ...func(o *Options)) *Embedder {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI embedder from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Embedder {
	opts := Options{
		Model:      openai.EmbeddingModelTextEmbedding3Small,
		Dimensions: 384,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Embedder{client: client, opts: opts}
}

// Embed converts text into an embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model: e.opts.Model,
	}
	if e.opts.Dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.opts.Dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: embeddings api: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai: embeddings api returned no data")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimensions returns the embedding size this embedder produces.
func (e *Embedder) Dimensions() int {
	return e.opts.Dimensions
}
