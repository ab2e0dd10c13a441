package metadata

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Index is an inverted index over scalar document fields, backed by roaring
// bitmaps of slot numbers.
//
// Layout: map[field]map[valueKey]*roaring.Bitmap (posting lists).
// Only scalar values (strings, bools, integers, floats) are indexed;
// nested maps and slices are skipped. The documents themselves are not
// retained.
//
// Index is safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	inverted map[string]map[string]*roaring.Bitmap
}

// NewIndex creates an empty inverted index.
func NewIndex() *Index {
	return &Index{
		inverted: make(map[string]map[string]*roaring.Bitmap),
	}
}

// Add indexes the scalar fields of doc under the given slot.
// Slots are expected to be assigned in insertion order by the store.
func (ix *Index) Add(slot int, doc Document) {
	if slot < 0 || len(doc) == 0 {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for field, value := range doc {
		key, ok := valueKey(value)
		if !ok {
			continue
		}
		valueMap, ok := ix.inverted[field]
		if !ok {
			valueMap = make(map[string]*roaring.Bitmap)
			ix.inverted[field] = valueMap
		}
		bitmap, ok := valueMap[key]
		if !ok {
			bitmap = roaring.New()
			valueMap[key] = bitmap
		}
		bitmap.Add(uint32(slot))
	}
}

// CompileFilter evaluates the filter set into a bitmap of matching slots.
//
// Conditions are ANDed; values within a condition are ORed. An empty filter
// set returns nil, meaning "match everything".
func (ix *Index) CompileFilter(fs *FilterSet) *roaring.Bitmap {
	if fs.Empty() {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var result *roaring.Bitmap
	for _, cond := range fs.conditions {
		valueMap := ix.inverted[cond.field]

		condBitmap := roaring.New()
		for _, value := range cond.values {
			key, ok := valueKey(value)
			if !ok {
				continue
			}
			if bm := valueMap[key]; bm != nil {
				condBitmap.Or(bm)
			}
		}

		if result == nil {
			result = condBitmap
			continue
		}
		result.And(condBitmap)
		if result.IsEmpty() {
			return result
		}
	}
	return result
}

// Cardinality returns the number of posting lists held for a field.
func (ix *Index) Cardinality(field string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.inverted[field])
}

// valueKey canonicalizes a scalar value into a typed string key so that
// numerically equal values collide regardless of their Go type (JSON
// round-trips turn ints into float64).
func valueKey(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return "s:" + val, true
	case bool:
		return "b:" + strconv.FormatBool(val), true
	case int:
		return numKey(float64(val)), true
	case int32:
		return numKey(float64(val)), true
	case int64:
		return numKey(float64(val)), true
	case uint64:
		return numKey(float64(val)), true
	case float32:
		return numKey(float64(val)), true
	case float64:
		return numKey(val), true
	default:
		return "", false
	}
}

func numKey(f float64) string {
	return fmt.Sprintf("n:%g", f)
}
