// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Dudoxx/extractor-merger/pkg/types"
)

// DedupBackend performs semantic deduplication of one field's entries. The
// raw JSON payload comes back undecoded so Deduplicate can interpret the
// response shapes permissively.
type DedupBackend interface {
	DeduplicateItems(ctx context.Context, field string, items []string) (json.RawMessage, error)
}

// Deduplicate collapses near-duplicate entries in every list-valued field of
// record, consulting backend for semantic merging when exact-string dedup
// leaves more than one entry. A nil backend, a backend error, or an
// unusable response all degrade to the deterministic exact-dedup result;
// dedup failure is never fatal. Fields are visited in sorted order, one
// blocking backend call each. The return value counts backend invocations.
func Deduplicate(ctx context.Context, record types.MergedRecord, listFields map[string]bool, backend DedupBackend, w io.Writer) int {
	fields := make([]string, 0, len(listFields))
	for field := range listFields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	calls := 0
	for _, field := range fields {
		value, ok := record[field]
		if !ok || !value.IsList {
			continue
		}

		unique := dedupExact(value.List)
		if len(unique) <= 1 {
			record[field] = types.ListValue(unique...)
			continue
		}

		if backend == nil {
			record[field] = types.ListValue(unique...)
			continue
		}

		fmt.Fprintf(w, "deduplicating %s (%d entries)\n", field, len(unique))
		calls++

		raw, err := backend.DeduplicateItems(ctx, field, unique)
		if err != nil {
			fmt.Fprintf(w, "warning: dedup backend failed for %s: %v, keeping exact-match dedup\n", field, err)
			record[field] = types.ListValue(unique...)
			continue
		}

		items, ok := decodeDedupResponse(raw, field)
		if !ok {
			fmt.Fprintf(w, "warning: dedup backend returned unusable response for %s, keeping exact-match dedup\n", field)
			record[field] = types.ListValue(unique...)
			continue
		}

		record[field] = types.ListValue(items...)
	}

	return calls
}

// dedupExact drops exact-duplicate strings, preserving first-seen order.
func dedupExact(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// decodeDedupResponse interprets a dedup backend payload permissively. It
// accepts a flat array of strings, a single-key object wrapping such an
// array, or an array of objects reduced to flat strings via the
// condition/date heuristic. Anything else is rejected.
func decodeDedupResponse(raw json.RawMessage, field string) ([]string, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err == nil {
		return decodeDedupArray(elems)
	}

	// Single-key object wrapping the array, e.g. {"deduplicated_items": [...]}.
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper) == 1 {
		for _, inner := range wrapper {
			if err := json.Unmarshal(inner, &elems); err == nil {
				return decodeDedupArray(elems)
			}
		}
	}

	return nil, false
}

func decodeDedupArray(elems []json.RawMessage) ([]string, bool) {
	items := make([]string, 0, len(elems))
	for _, elem := range elems {
		var s string
		if err := json.Unmarshal(elem, &s); err == nil {
			items = append(items, s)
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(elem, &obj); err == nil {
			items = append(items, flattenDedupObject(obj, elem))
			continue
		}

		return nil, false
	}
	return items, true
}

// conditionKeys and dateKeys are the alternate names dedup backends use when
// they return structured entries instead of flat strings.
var conditionKeys = []string{
	"medical_condition", "condition", "diagnosis", "procedure", "treatment", "event",
}

var dateKeys = []string{
	"date", "date_diagnosed", "date_started", "date_performed", "year",
	"date_of_diagnosis", "start_date", "date_of_procedure", "when",
	"date_procedure", "date_surgery", "date_event", "date_treatment",
	"diagnosed_on", "performed_on", "started_on", "occurred_on",
}

// flattenDedupObject reconstructs a flat "condition (date)" string from a
// structured entry. An entry with no recognizable condition key keeps its
// compact JSON form so no information is dropped.
func flattenDedupObject(obj map[string]json.RawMessage, elem json.RawMessage) string {
	condition := firstStringKey(obj, conditionKeys)
	if condition == "" {
		var compact map[string]interface{}
		if err := json.Unmarshal(elem, &compact); err == nil {
			if b, err := json.Marshal(compact); err == nil {
				return string(b)
			}
		}
		return string(elem)
	}

	date := firstStringKey(obj, dateKeys)
	if date != "" && !strings.EqualFold(date, "unknown") {
		return fmt.Sprintf("%s (%s)", condition, date)
	}
	return condition
}

func firstStringKey(obj map[string]json.RawMessage, keys []string) string {
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}
