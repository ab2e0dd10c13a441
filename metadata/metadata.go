// Package metadata provides the schema-less document type stored alongside
// vectors, plus an optional roaring-bitmap inverted index for filtered
// retrieval.
//
// The core store treats documents as opaque: it stores and returns them but
// never inspects their contents. Indexing for filtered search is a separate,
// caller-maintained concern (see Index).
package metadata

import "maps"

// Document is an arbitrary key-value mapping associated with a vector.
//
// Values should be JSON-encodable (strings, bools, numbers, nested maps and
// slices); the configured codec is the authority on what round-trips.
type Document map[string]any

// Clone returns a shallow copy of the document.
// Nested values are shared with the original.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}
