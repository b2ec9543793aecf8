// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"strings"
	"unicode"
)

// conflictRule attempts to resolve a scalar conflict between the accumulated
// value and a later candidate. resolved is meaningful only when ok is true.
// Rules run in a fixed order; the first to fire decides the field.
type conflictRule struct {
	name    string
	resolve func(field, current, candidate string) (resolved string, ok bool)
}

// scalarRules is the conflict chain: prefer the strictly longer value, then
// the superstring, then the better-formatted of two values that normalize to
// the same content. If none fires the conflict is irreconcilable and the
// first-seen value stands.
var scalarRules = []conflictRule{
	{name: "longer-wins", resolve: resolveLonger},
	{name: "substring", resolve: resolveSubstring},
	{name: "normalized-equality", resolve: resolveNormalizedEquality},
}

// resolveScalar runs the conflict chain. ok is false when no rule fires, in
// which case the caller keeps current and records a conflict.
func resolveScalar(field, current, candidate string) (string, bool) {
	for _, rule := range scalarRules {
		if resolved, ok := rule.resolve(field, current, candidate); ok {
			return resolved, true
		}
	}
	return current, false
}

// resolveLonger keeps the candidate when it is strictly longer: more
// characters usually means more information.
func resolveLonger(_, current, candidate string) (string, bool) {
	if len(candidate) > len(current) {
		return candidate, true
	}
	return "", false
}

// resolveSubstring keeps whichever value contains the other.
func resolveSubstring(_, current, candidate string) (string, bool) {
	if strings.Contains(current, candidate) {
		return current, true
	}
	if strings.Contains(candidate, current) {
		return candidate, true
	}
	return "", false
}

// resolveNormalizedEquality fires when both values normalize to the same
// content (formatting differences only) and keeps the one that scores higher
// on the formatting-quality heuristic. Ties keep the first-seen value.
func resolveNormalizedEquality(field, current, candidate string) (string, bool) {
	if normalizeForField(current, field) != normalizeForField(candidate, field) {
		return "", false
	}
	if formatQualityScore(candidate, field) > formatQualityScore(current, field) {
		return candidate, true
	}
	return current, true
}

// normalizeForField reduces a value to a comparable form, aware of the field
// type implied by its name: digits only for phone-like fields, lowercase for
// email-like fields, lowercase with separators collapsed for address-like
// fields, lowercase with whitespace collapsed otherwise.
func normalizeForField(value, field string) string {
	name := strings.ToLower(field)

	switch {
	case strings.Contains(name, "phone"):
		var digits strings.Builder
		for _, r := range value {
			if unicode.IsDigit(r) {
				digits.WriteRune(r)
			}
		}
		return digits.String()

	case strings.Contains(name, "email"):
		return strings.ToLower(value)

	case strings.Contains(name, "address"):
		normalized := collapseWhitespace(strings.ToLower(value))
		normalized = strings.ReplaceAll(normalized, ",", " ")
		normalized = strings.ReplaceAll(normalized, ".", " ")
		return collapseWhitespace(normalized)

	default:
		return collapseWhitespace(strings.ToLower(value))
	}
}

// formatQualityScore rates how well a value is formatted for its field type.
// Higher is better. The field-specific component and the generic component
// (capitalization, punctuation) are additive.
func formatQualityScore(value, field string) int {
	name := strings.ToLower(field)
	score := 0

	switch {
	case strings.Contains(name, "phone"):
		if strings.Contains(value, "(") && strings.Contains(value, ")") {
			score++
		}
		if strings.Contains(value, "-") {
			score++
		}

	case strings.Contains(name, "email"):
		if at := strings.LastIndex(value, "@"); at >= 0 && strings.Contains(value[at+1:], ".") {
			score += 2
		}

	case strings.Contains(name, "address"):
		if strings.Contains(value, ",") {
			score++
		}
		if containsUpper(value) {
			score++
		}

	case strings.Contains(name, "name"):
		if allWordsCapitalized(value) {
			score += 2
		}
	}

	if containsUpper(value) {
		score++
	}
	if strings.ContainsAny(value, ",.;:") {
		score++
	}

	return score
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func allWordsCapitalized(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		r := []rune(w)[0]
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
