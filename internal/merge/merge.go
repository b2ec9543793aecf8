// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge reconciles per-segment field maps into one consistent record.
// Merging is deterministic given segment order: earlier segments win ties,
// scalar conflicts run through a fixed rule chain, and fields observed to be
// collections are promoted to list state for the remainder of the merge.
package merge

import (
	"fmt"
	"io"

	"github.com/Dudoxx/extractor-merger/pkg/types"
)

// DefaultSentinel is the placeholder for fields not found in any segment.
const DefaultSentinel = "unknown"

// Result is the outcome of reconciling a job's segment results.
type Result struct {
	// Record maps every requested field to its reconciled value. Fields not
	// found in any segment hold the sentinel.
	Record types.MergedRecord

	// ListFields is the set of fields promoted to list state during the
	// merge. Promotion is one-way: once list-valued, always list-valued.
	ListFields map[string]bool

	// Conflicts lists scalar disagreements the rule chain could not resolve.
	Conflicts []types.Conflict

	// Sentinel is the placeholder value the merge ran with.
	Sentinel string
}

// Merge reconciles segment results field by field, in segment order. Segment
// results with nil Fields (failed extractions) are skipped, so merging the
// remaining segments alone produces the same record.
func Merge(results []types.SegmentResult, fields []string, cfg types.MergeConfig, w io.Writer) *Result {
	sentinel := cfg.Sentinel
	if sentinel == "" {
		sentinel = DefaultSentinel
	}

	r := &Result{
		Record:     make(types.MergedRecord, len(fields)),
		ListFields: make(map[string]bool),
		Sentinel:   sentinel,
	}
	for _, field := range fields {
		r.Record[field] = types.ScalarValue(sentinel)
	}

	for _, sr := range results {
		if sr.Fields == nil {
			if sr.Err != "" {
				fmt.Fprintf(w, "warning: skipping failed segment %d: %s\n", sr.Index, sr.Err)
			}
			continue
		}
		for _, field := range fields {
			value, ok := sr.Fields[field]
			if !ok {
				continue
			}
			if !value.IsList && value.Scalar == sentinel {
				continue
			}
			r.mergeField(field, value, sr.Index, cfg, w)
		}
	}

	return r
}

// mergeField folds one segment's value for field into the accumulator.
func (r *Result) mergeField(field string, value types.FieldValue, segIndex int, cfg types.MergeConfig, w io.Writer) {
	acc := r.Record[field]

	// First non-sentinel value wins the slot outright.
	if !acc.IsList && acc.Scalar == r.Sentinel {
		r.Record[field] = value
		return
	}

	if acc.Equal(value) {
		return
	}

	// Either side already a list: coalesce and concatenate.
	if acc.IsList || value.IsList {
		merged := append(append([]string(nil), acc.Items()...), value.Items()...)
		r.Record[field] = types.ListValue(merged...)
		r.ListFields[field] = true
		return
	}

	// Scalars on a known or lexicon-flagged list field accumulate instead of
	// conflicting; exact duplicates are not re-appended.
	if r.ListFields[field] || IsListField(field, cfg.ListFieldKeywords) {
		items := acc.Items()
		if !containsString(items, value.Scalar) {
			items = append(items, value.Scalar)
		}
		r.Record[field] = types.ListValue(items...)
		r.ListFields[field] = true
		return
	}

	// True scalar conflict: run the rule chain.
	resolved, ok := resolveScalar(field, acc.Scalar, value.Scalar)
	if !ok {
		fmt.Fprintf(w, "warning: conflicting values for field %q: %q vs %q, keeping first\n",
			field, acc.Scalar, value.Scalar)
		r.Conflicts = append(r.Conflicts, types.Conflict{
			Field:        field,
			Kept:         acc.Scalar,
			Discarded:    value.Scalar,
			SegmentIndex: segIndex,
		})
		return
	}
	r.Record[field] = types.ScalarValue(resolved)
}

func containsString(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
