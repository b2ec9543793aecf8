// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize finalizes a merged record: every requested field is
// guaranteed present (defaulting to the sentinel) and date-valued fields are
// rewritten to a canonical representation where one of the candidate input
// formats parses. Normalization failure is silent; the value passes through
// unchanged.
package normalize

import (
	"strings"
	"time"

	"github.com/Dudoxx/extractor-merger/pkg/types"
)

// candidateLayouts is the ordered list of date formats tried during
// normalization: numeric slash/dash/dot forms, then full and abbreviated
// month names, each in day-first and month-first order. Day-first wins
// ambiguous numeric dates.
var candidateLayouts = []string{
	"02/01/2006", "01/02/2006", "2006-01-02",
	"02-01-2006", "01-02-2006",
	"02.01.2006", "01.02.2006",
	"January 2, 2006", "2 January 2006",
	"Jan 2, 2006", "2 Jan 2006",
	"2 Jan, 2006", "Jan 2 2006",
}

// Apply returns a record containing exactly the requested fields: values
// carry over from record, missing fields default to sentinel, and date
// fields are canonicalized to dateFormat. The input record is not mutated.
func Apply(record types.MergedRecord, fields, dateFields []string, dateFormat, sentinel string) types.MergedRecord {
	out := make(types.MergedRecord, len(fields))
	for _, field := range fields {
		if value, ok := record[field]; ok {
			out[field] = value
		} else {
			out[field] = types.ScalarValue(sentinel)
		}
	}

	for _, field := range datedFields(out, dateFields) {
		value, ok := out[field]
		if !ok || value.IsList || value.Scalar == sentinel {
			continue
		}
		out[field] = types.ScalarValue(Date(value.Scalar, dateFormat))
	}

	return out
}

// datedFields returns the explicit date-field list, or, when none is given,
// every field in the record with "date" in its name.
func datedFields(record types.MergedRecord, dateFields []string) []string {
	if len(dateFields) > 0 {
		return dateFields
	}
	var inferred []string
	for field := range record {
		if strings.Contains(strings.ToLower(field), "date") {
			inferred = append(inferred, field)
		}
	}
	return inferred
}

// Date rewrites value into format (e.g. "dd/mm/YYYY") using the first
// candidate layout that parses. Unparseable values are returned unchanged.
func Date(value, format string) string {
	layout := toGoLayout(format)
	for _, candidate := range candidateLayouts {
		if t, err := time.Parse(candidate, value); err == nil {
			return t.Format(layout)
		}
	}
	return value
}

// toGoLayout converts a dd/mm/YYYY-style format string to a Go time layout.
func toGoLayout(format string) string {
	layout := strings.ReplaceAll(format, "dd", "02")
	layout = strings.ReplaceAll(layout, "mm", "01")
	layout = strings.ReplaceAll(layout, "YYYY", "2006")
	return layout
}
