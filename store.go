package memvec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ragmem/memvec/blobstore"
	"github.com/ragmem/memvec/metadata"
	"github.com/ragmem/memvec/snapshot"
)

// entry pairs a vector with its metadata document. The slot of an entry is
// its position in the entries slice; slots are stable because entries are
// append-only.
type entry struct {
	vector []float32
	doc    metadata.Document
}

// Store is a fixed-dimension vector store with paired metadata.
//
// All methods are safe for concurrent use. Writes take the exclusive lock;
// searches share the read lock, so readers never observe a partially
// applied insert or load.
type Store struct {
	mu      sync.RWMutex
	entries []entry

	dimension int
	opts      options
}

// New creates an empty Store for vectors of the given dimension.
func New(dimension int, optFns ...Option) (*Store, error) {
	if dimension <= 0 {
		return nil, &ErrInvalidDimension{Dimension: dimension}
	}
	return &Store{
		dimension: dimension,
		opts:      applyOptions(optFns),
	}, nil
}

// Open creates a Store and loads the persisted snapshot, if any.
// A blob store with no snapshot yields an empty store.
func Open(ctx context.Context, dimension int, optFns ...Option) (*Store, error) {
	s, err := New(dimension, optFns...)
	if err != nil {
		return nil, err
	}
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Dimension returns the vector dimension this store enforces.
func (s *Store) Dimension() int { return s.dimension }

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Insert appends a vector with its metadata document and returns the slot
// it was assigned. The vector and document are copied, so the caller may
// reuse its buffers. Slots start at 0 and grow densely.
func (s *Store) Insert(ctx context.Context, vector []float32, doc metadata.Document) (slot int, err error) {
	start := time.Now()
	defer func() {
		s.opts.metricsCollector.RecordInsert(time.Since(start), err)
		s.opts.logger.LogInsert(ctx, slot, len(vector), err)
	}()

	if err := ctx.Err(); err != nil {
		return -1, err
	}
	if len(vector) != s.dimension {
		return -1, &ErrDimensionMismatch{Expected: s.dimension, Actual: len(vector)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry{
		vector: slices.Clone(vector),
		doc:    doc.Clone(),
	})
	return len(s.entries) - 1, nil
}

// Persist writes the current contents as a snapshot pair to the configured
// blob store. Both artifacts carry a fresh shared snapshot ID, and the
// write goes through the blob store's grouped put, so a later Load either
// sees the complete new pair or detects the tear.
//
// Persist holds the exclusive lock for its full duration, including the
// blob store write, so concurrent Persist calls cannot interleave their
// artifact writes on backends without a grouped commit.
//
// Persisting an empty store writes a valid empty snapshot pair.
func (s *Store) Persist(ctx context.Context) (err error) {
	start := time.Now()
	var count int
	defer func() {
		s.opts.metricsCollector.RecordPersist(time.Since(start), err)
		s.opts.logger.LogPersist(ctx, count, err)
	}()

	id := uuid.New()

	s.mu.Lock()
	defer s.mu.Unlock()
	count = len(s.entries)

	vectors := make([][]float32, len(s.entries))
	documents := make([]metadata.Document, len(s.entries))
	for i, e := range s.entries {
		vectors[i] = e.vector
		documents[i] = e.doc
	}

	var indexBuf, metaBuf bytes.Buffer
	err = snapshot.EncodeIndex(&indexBuf, &snapshot.Index{
		SnapshotID: id,
		Dimension:  s.dimension,
		Vectors:    vectors,
	}, s.opts.compression)
	if err == nil {
		err = snapshot.EncodeMetadata(&metaBuf, &snapshot.Metadata{
			SnapshotID: id,
			Documents:  documents,
		}, s.opts.codec, s.opts.compression)
	}
	if err != nil {
		return err
	}

	return s.opts.store.PutAll(ctx, map[string][]byte{
		s.opts.indexArtifact:    indexBuf.Bytes(),
		s.opts.metadataArtifact: metaBuf.Bytes(),
	})
}

// Load replaces the store contents with the persisted snapshot.
//
// If neither artifact exists the store is reset to empty. If exactly one
// exists, or the pair does not decode into a consistent snapshot, Load
// returns ErrCorruptSnapshot and leaves the store unchanged. A snapshot
// written for a different dimension returns ErrDimensionMismatch.
func (s *Store) Load(ctx context.Context) (err error) {
	start := time.Now()
	var count int
	defer func() {
		s.opts.metricsCollector.RecordLoad(time.Since(start), err)
		s.opts.logger.LogLoad(ctx, count, err)
	}()

	indexData, indexErr := s.opts.store.Get(ctx, s.opts.indexArtifact)
	metaData, metaErr := s.opts.store.Get(ctx, s.opts.metadataArtifact)

	indexMissing := errors.Is(indexErr, blobstore.ErrNotFound)
	metaMissing := errors.Is(metaErr, blobstore.ErrNotFound)

	switch {
	case indexMissing && metaMissing:
		s.mu.Lock()
		s.entries = nil
		s.mu.Unlock()
		return nil
	case indexMissing:
		return &ErrCorruptSnapshot{
			Reason: fmt.Sprintf("index artifact %s missing, metadata artifact present", s.opts.indexArtifact),
			cause:  indexErr,
		}
	case metaMissing:
		return &ErrCorruptSnapshot{
			Reason: fmt.Sprintf("metadata artifact %s missing, index artifact present", s.opts.metadataArtifact),
			cause:  metaErr,
		}
	case indexErr != nil:
		return fmt.Errorf("memvec: read index artifact: %w", indexErr)
	case metaErr != nil:
		return fmt.Errorf("memvec: read metadata artifact: %w", metaErr)
	}

	index, err := snapshot.DecodeIndex(bytes.NewReader(indexData))
	if err != nil {
		return &ErrCorruptSnapshot{Reason: "index artifact failed to decode", cause: err}
	}
	meta, err := snapshot.DecodeMetadata(bytes.NewReader(metaData))
	if err != nil {
		return &ErrCorruptSnapshot{Reason: "metadata artifact failed to decode", cause: err}
	}

	if index.SnapshotID != meta.SnapshotID {
		return &ErrCorruptSnapshot{
			Reason: fmt.Sprintf("artifact pair mismatch: index snapshot %s, metadata snapshot %s",
				index.SnapshotID, meta.SnapshotID),
		}
	}
	if len(index.Vectors) != len(meta.Documents) {
		return &ErrCorruptSnapshot{
			Reason: fmt.Sprintf("artifact pair mismatch: %d vectors, %d documents",
				len(index.Vectors), len(meta.Documents)),
		}
	}
	if index.Dimension != s.dimension {
		return &ErrDimensionMismatch{Expected: s.dimension, Actual: index.Dimension}
	}

	entries := make([]entry, len(index.Vectors))
	for i := range entries {
		entries[i] = entry{
			vector: index.Vectors[i],
			doc:    meta.Documents[i],
		}
	}
	count = len(entries)

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}
