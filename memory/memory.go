// Package memory provides a text-level facade over the vector store.
//
// Remember embeds a text, inserts the vector with its metadata, and
// persists the store so every remembered text is durable on return. Recall
// embeds a query and returns the most similar memories.
package memory

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ragmem/memvec"
	"github.com/ragmem/memvec/embedder"
	"github.com/ragmem/memvec/metadata"
)

// TextField is the document field Remember stores the original text under.
const TextField = "text"

// Recalled is one recalled memory.
type Recalled struct {
	// Slot is the store slot of the memory.
	Slot int
	// Score is the similarity of the memory to the query.
	Score float32
	// Text is the original remembered text.
	Text string
	// Metadata is the full stored document, including TextField.
	Metadata metadata.Document
}

// Options configure the memory facade.
type Options struct {
	// EmbedRate limits embedding calls. The default is no limit, which
	// suits local embedders; set a rate when the embedder fronts a paid
	// API.
	EmbedRate rate.Limit

	// EmbedBurst is the limiter burst size when EmbedRate is set.
	EmbedBurst int
}

// Memory pairs an embedder with a vector store.
//
// Memory is safe for concurrent use; the underlying store serializes
// writes.
type Memory struct {
	store    *memvec.Store
	embedder embedder.Embedder
	limiter  *rate.Limiter
	index    *metadata.Index
}

// New creates a Memory on top of an existing store and embedder.
// The embedder's dimensions must match the store's.
func New(store *memvec.Store, emb embedder.Embedder, optFns ...func(o *Options)) (*Memory, error) {
	opts := Options{
		EmbedRate:  rate.Inf,
		EmbedBurst: 1,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if got := emb.Dimensions(); got != store.Dimension() {
		return nil, fmt.Errorf("memory: embedder produces %d dimensions, store expects %d", got, store.Dimension())
	}

	return &Memory{
		store:    store,
		embedder: emb,
		limiter:  rate.NewLimiter(opts.EmbedRate, opts.EmbedBurst),
		index:    metadata.NewIndex(),
	}, nil
}

// Store returns the underlying vector store.
func (m *Memory) Store() *memvec.Store { return m.store }

// Remember embeds text, stores it with the given metadata, and persists the
// store. The original text is stored under TextField alongside the caller's
// metadata. Returns the slot of the new memory.
func (m *Memory) Remember(ctx context.Context, text string, doc metadata.Document) (int, error) {
	vec, err := m.embed(ctx, text)
	if err != nil {
		return -1, err
	}

	stored := doc.Clone()
	if stored == nil {
		stored = metadata.Document{}
	}
	stored[TextField] = text
	stored["remembered_at"] = time.Now().UTC().Format(time.RFC3339)

	slot, err := m.store.Insert(ctx, vec, stored)
	if err != nil {
		return -1, err
	}
	m.index.Add(slot, stored)

	if err := m.store.Persist(ctx); err != nil {
		return -1, fmt.Errorf("memory: persist after remember: %w", err)
	}
	return slot, nil
}

// Recall embeds the query and returns the k most similar memories, best
// first.
func (m *Memory) Recall(ctx context.Context, query string, k int) ([]Recalled, error) {
	return m.recall(ctx, query, k)
}

// RecallFiltered is Recall restricted to memories whose metadata matches
// the filter set. Only memories remembered through this Memory instance are
// in the filter index.
func (m *Memory) RecallFiltered(ctx context.Context, query string, k int, fs *metadata.FilterSet) ([]Recalled, error) {
	bitmap := m.index.CompileFilter(fs)
	if bitmap == nil {
		return m.recall(ctx, query, k)
	}
	return m.recall(ctx, query, k, memvec.WithFilter(func(slot int) bool {
		return bitmap.Contains(uint32(slot))
	}))
}

func (m *Memory) recall(ctx context.Context, query string, k int, optFns ...memvec.SearchOption) ([]Recalled, error) {
	vec, err := m.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := m.store.Search(ctx, vec, k, optFns...)
	if err != nil {
		return nil, err
	}

	recalled := make([]Recalled, len(results))
	for i, r := range results {
		text, _ := r.Metadata[TextField].(string)
		recalled[i] = Recalled{
			Slot:     r.Slot,
			Score:    r.Score,
			Text:     text,
			Metadata: r.Metadata,
		}
	}
	return recalled, nil
}

func (m *Memory) embed(ctx context.Context, text string) ([]float32, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("memory: embed: %w", err)
	}
	if len(vec) != m.store.Dimension() {
		return nil, fmt.Errorf("memory: embedder returned %d dimensions, expected %d", len(vec), m.store.Dimension())
	}
	return vec, nil
}
