// Package memvec is an embedded vector memory store for retrieval-augmented
// applications.
//
// A Store holds fixed-dimension float32 vectors paired with opaque metadata
// documents. Search is an exact inner-product scan with deterministic
// ranking: descending score, and among equal scores the earlier-inserted
// slot wins. Persist writes the store as a pair of checksummed artifacts to
// a pluggable blob store (local filesystem, in-memory, MinIO, S3); Load
// restores it, refusing torn or corrupt snapshot pairs.
//
// The memory subpackage layers a text-level facade on top: Remember embeds
// and durably stores a text, Recall embeds a query and returns the most
// similar memories.
//
// Basic usage:
//
//	store, err := memvec.New(384, memvec.WithPath("./data"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	slot, err := store.Insert(ctx, vec, metadata.Document{"text": "hello"})
//	results, err := store.Search(ctx, query, 5)
package memvec
