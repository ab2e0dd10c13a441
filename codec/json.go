package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// For metadata documents (map-like structures) JSON is stable and portable.
// Use it when the lowest-dependency option matters more than speed.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the default codec used by the library.
//
// NOTE: This affects newly-written snapshots. Existing artifacts are
// self-describing (they record the codec name in their header).
var Default Codec = GoJSON{}
