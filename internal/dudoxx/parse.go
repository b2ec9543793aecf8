// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dudoxx

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Dudoxx/extractor-merger/pkg/types"
)

// fencedJSONRe salvages a JSON payload wrapped in a markdown code fence,
// with or without a language tag.
var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// lineFieldRe matches "Field: Value" or "Field - Value" lines in prose
// responses that ignored the JSON instruction.
var lineFieldRe = regexp.MustCompile(`(?m)^([^:\n-]+)[:-]([^\n]+)$`)

// parseFieldMap decodes a model response into a FieldMap. It tries the whole
// content as JSON, then a fenced JSON block, then falls back to scraping
// "Field: Value" lines. A response yielding no fields is an error.
func parseFieldMap(content string) (types.FieldMap, error) {
	raw, err := extractJSONPayload(content)
	if err == nil {
		var fields types.FieldMap
		if err := json.Unmarshal(raw, &fields); err == nil && len(fields) > 0 {
			return fields, nil
		}
	}

	fields := make(types.FieldMap)
	for _, match := range lineFieldRe.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(match[1])
		value := strings.TrimSpace(match[2])
		if name == "" || value == "" {
			continue
		}
		fields[name] = types.ScalarValue(value)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("parsing extraction response: no fields found in %q", truncate(content, 120))
	}
	return fields, nil
}

// extractJSONPayload returns the JSON value embedded in a model response:
// the whole content when it is valid JSON, otherwise the first fenced block
// that is.
func extractJSONPayload(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	if match := fencedJSONRe.FindStringSubmatch(content); match != nil {
		inner := strings.TrimSpace(match[1])
		if json.Valid([]byte(inner)) {
			return json.RawMessage(inner), nil
		}
	}

	return nil, fmt.Errorf("no JSON payload in response %q", truncate(content, 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
