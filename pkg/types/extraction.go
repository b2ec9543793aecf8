// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data model shared across extraction stages.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Segment is one contiguous, possibly overlapping slice of the source text,
// submitted to the extraction backend as a single unit. Segments are created
// by the segmenter and never mutated; Index values are dense from 0 and match
// submission order.
type Segment struct {
	// Index is the segment's position in the submission order.
	Index int `json:"index" yaml:"index"`

	// Text is the segment's content.
	Text string `json:"text" yaml:"text"`
}

// FieldValue is a single extracted value: either a scalar string or an
// ordered list of strings. A FieldValue is in exactly one of the two states.
type FieldValue struct {
	// Scalar holds the value when IsList is false.
	Scalar string

	// List holds the ordered entries when IsList is true.
	List []string

	// IsList selects between the scalar and list representations.
	IsList bool
}

// ScalarValue returns a scalar FieldValue.
func ScalarValue(s string) FieldValue {
	return FieldValue{Scalar: s}
}

// ListValue returns a list FieldValue with the given entries.
func ListValue(items ...string) FieldValue {
	return FieldValue{List: items, IsList: true}
}

// Equal reports whether two FieldValues hold the same state and content.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.IsList != o.IsList {
		return false
	}
	if !v.IsList {
		return v.Scalar == o.Scalar
	}
	if len(v.List) != len(o.List) {
		return false
	}
	for i := range v.List {
		if v.List[i] != o.List[i] {
			return false
		}
	}
	return true
}

// Items returns the value as a list: the entries themselves for a list value,
// or a single-element slice for a scalar.
func (v FieldValue) Items() []string {
	if v.IsList {
		return v.List
	}
	return []string{v.Scalar}
}

// String renders the value for display: the scalar itself, or the list
// entries joined with "; ".
func (v FieldValue) String() string {
	if !v.IsList {
		return v.Scalar
	}
	out := ""
	for i, item := range v.List {
		if i > 0 {
			out += "; "
		}
		out += item
	}
	return out
}

// MarshalJSON encodes a scalar as a JSON string and a list as a JSON array.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.IsList {
		return json.Marshal(v.List)
	}
	return json.Marshal(v.Scalar)
}

// UnmarshalJSON accepts the shapes an extraction backend actually produces:
// a string, an array (entries stringified), a number, a bool, or null.
// Objects inside arrays are re-encoded as compact JSON strings so no
// information is dropped.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = ScalarValue(s)
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		items := make([]string, 0, len(raw))
		for _, r := range raw {
			items = append(items, stringifyJSON(r))
		}
		*v = FieldValue{List: items, IsList: true}
		return nil
	}

	var any interface{}
	if err := json.Unmarshal(data, &any); err != nil {
		return fmt.Errorf("decoding field value: %w", err)
	}
	if any == nil {
		*v = ScalarValue("")
		return nil
	}
	*v = ScalarValue(stringifyJSON(data))
	return nil
}

// MarshalYAML mirrors the JSON encoding for YAML export.
func (v FieldValue) MarshalYAML() (interface{}, error) {
	if v.IsList {
		return v.List, nil
	}
	return v.Scalar, nil
}

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (v *FieldValue) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		*v = ScalarValue(s)
		return nil
	}
	var items []string
	if err := unmarshal(&items); err != nil {
		return fmt.Errorf("decoding field value: %w", err)
	}
	*v = FieldValue{List: items, IsList: true}
	return nil
}

// stringifyJSON renders a raw JSON value as a plain string: strings are
// unquoted, everything else keeps its compact JSON form.
func stringifyJSON(raw []byte) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var any interface{}
	if err := json.Unmarshal(raw, &any); err == nil {
		if b, err := json.Marshal(any); err == nil {
			return string(b)
		}
	}
	return string(raw)
}

// FieldMap maps requested field names to extracted values for one segment.
type FieldMap map[string]FieldValue

// SegmentResult pairs a segment index with its extraction outcome. Fields is
// nil when the backend call failed after all retries.
type SegmentResult struct {
	// Index is the originating segment's index.
	Index int `json:"index" yaml:"index"`

	// Fields holds the extracted values, or nil on failure.
	Fields FieldMap `json:"fields,omitempty" yaml:"fields,omitempty"`

	// Err records the failure reason when Fields is nil.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}

// MergedRecord is the final reconciled mapping. After normalization it is
// total: every requested field is present, defaulting to the sentinel.
type MergedRecord map[string]FieldValue

// Conflict records an irreconcilable scalar disagreement between segments.
// Non-fatal; kept for diagnostics only.
type Conflict struct {
	// Field is the disputed field name.
	Field string `json:"field" yaml:"field"`

	// Kept is the value retained (the first seen).
	Kept string `json:"kept" yaml:"kept"`

	// Discarded is the later value that could not be reconciled.
	Discarded string `json:"discarded" yaml:"discarded"`

	// SegmentIndex is the segment that produced the discarded value.
	SegmentIndex int `json:"segment_index" yaml:"segment_index"`
}

// JobResult is the output of one extraction job.
type JobResult struct {
	// Record is the total merged record.
	Record MergedRecord `json:"record" yaml:"record"`

	// Fields lists the requested field names in request order.
	Fields []string `json:"fields" yaml:"fields"`

	// Segments is the number of segments processed.
	Segments int `json:"segments" yaml:"segments"`

	// BackendCalls is the number of extraction invocations made (one per
	// segment, plus one per list field the deduplicator consulted).
	BackendCalls int `json:"backend_calls" yaml:"backend_calls"`

	// Conflicts lists the irreconcilable scalar disagreements encountered.
	Conflicts []Conflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`

	// Elapsed is the wall-clock duration of the job.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}
