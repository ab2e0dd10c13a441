package memvec

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ragmem/memvec/internal/queue"
	"github.com/ragmem/memvec/metadata"
)

// defaultParallelMinRows is the entry count above which scoring fans out to
// multiple goroutines.
const defaultParallelMinRows = 4096

// SearchResult is one ranked match.
type SearchResult struct {
	// Slot is the insertion slot of the matched entry.
	Slot int
	// Score is the inner product of the query and the stored vector.
	Score float32
	// Metadata is a copy of the document stored with the entry; mutating
	// it does not affect the store.
	Metadata metadata.Document
}

// SearchOptions configure a single search call.
type SearchOptions struct {
	// Filter restricts results to slots it returns true for.
	// A nil filter admits every slot.
	Filter func(slot int) bool
}

// SearchOption mutates SearchOptions.
type SearchOption func(*SearchOptions)

// WithFilter restricts a search to slots the predicate admits.
func WithFilter(fn func(slot int) bool) SearchOption {
	return func(o *SearchOptions) {
		o.Filter = fn
	}
}

// Search returns the k entries with the highest inner-product score against
// query, best first. Among equal scores the earlier-inserted slot ranks
// first, so results are deterministic for a given store state.
//
// k == 0 returns an empty result; a negative k returns ErrInvalidK. Fewer
// than k entries simply yields fewer results.
func (s *Store) Search(ctx context.Context, query []float32, k int, optFns ...SearchOption) (results []SearchResult, err error) {
	start := time.Now()
	defer func() {
		s.opts.metricsCollector.RecordSearch(k, time.Since(start), err)
		s.opts.logger.LogSearch(ctx, k, len(results), err)
	}()

	if k < 0 {
		return nil, ErrInvalidK
	}
	if len(query) != s.dimension {
		return nil, &ErrDimensionMismatch{Expected: s.dimension, Actual: len(query)}
	}

	var opts SearchOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if k == 0 || len(s.entries) == 0 {
		return []SearchResult{}, nil
	}

	q := queue.NewCandidateQueue(k)
	if len(s.entries) >= s.opts.parallelMinRows {
		if err := s.scoreParallel(ctx, query, opts.Filter, q); err != nil {
			return nil, err
		}
	} else {
		for slot := range s.entries {
			if opts.Filter != nil && !opts.Filter(slot) {
				continue
			}
			q.Push(queue.Candidate{Slot: slot, Score: dot(query, s.entries[slot].vector)})
		}
	}

	ranked := q.Ranked()
	results = make([]SearchResult, len(ranked))
	for i, c := range ranked {
		results[i] = SearchResult{
			Slot:     c.Slot,
			Score:    c.Score,
			Metadata: s.entries[c.Slot].doc.Clone(),
		}
	}
	return results, nil
}

// scoreParallel computes all scores into a slot-indexed slice on a worker
// pool, then ranks sequentially. Scoring into fixed slots keeps the result
// identical to the sequential path regardless of goroutine interleaving.
func (s *Store) scoreParallel(ctx context.Context, query []float32, filter func(int) bool, q *queue.CandidateQueue) error {
	scores := make([]float32, len(s.entries))

	g, _ := errgroup.WithContext(ctx)
	workers := runtime.GOMAXPROCS(0)
	chunk := (len(s.entries) + workers - 1) / workers

	for lo := 0; lo < len(s.entries); lo += chunk {
		hi := min(lo+chunk, len(s.entries))
		g.Go(func() error {
			for slot := lo; slot < hi; slot++ {
				scores[slot] = dot(query, s.entries[slot].vector)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for slot := range s.entries {
		if filter != nil && !filter(slot) {
			continue
		}
		q.Push(queue.Candidate{Slot: slot, Score: scores[slot]})
	}
	return nil
}

// dot computes the inner product of two equal-length vectors.
// Unrolled four wide; the tail loop handles the remainder.
func dot(a, b []float32) float32 {
	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= len(a); i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	sum := s0 + s1 + s2 + s3
	for ; i < len(a); i++ {
		sum += a[i] * b[i]
	}
	return sum
}
