// Package blobstore abstracts the durable byte store that snapshot
// artifacts are written to and read from.
//
// Built-in implementations:
//
//   - LocalStore: local filesystem; PutAll commits all blobs via temp
//     files and rename
//   - MemoryStore: in-memory map, for tests
//   - minio.Store: MinIO / S3-compatible object storage
//   - s3.Store: Amazon S3; s3.CommitStore adds a DynamoDB commit pointer
//     for atomic multi-blob visibility
package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error satisfying
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist so local
// filesystem errors pass through unchanged.
var ErrNotFound = os.ErrNotExist

// BlobStore reads and writes named byte blobs.
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Get returns the full contents of a blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put writes a single blob. The write must be atomic: a concurrent
	// or subsequent reader sees either the old contents or the new,
	// never a partial write.
	Put(ctx context.Context, name string, data []byte) error

	// PutAll writes a group of blobs that belong together. Backends
	// with atomic rename commit the group all-or-nothing; object-store
	// backends write sequentially, relying on the caller to pair blobs
	// (e.g. via a shared snapshot ID) so torn groups are detectable.
	PutAll(ctx context.Context, blobs map[string][]byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of blobs starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
