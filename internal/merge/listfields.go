// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import "strings"

// DefaultListFieldKeywords is the built-in lexicon of name fragments that
// flag a field as list-valued. It is a heuristic: false positives and
// negatives are possible, so callers can supply their own set through
// MergeConfig.ListFieldKeywords.
var DefaultListFieldKeywords = []string{
	"history", "histories", "list", "lists", "items", "entries",
	"events", "experiences", "education", "work", "jobs", "skills",
	"qualifications", "certifications", "publications", "awards",
	"achievements", "projects", "responsibilities", "duties",
	"medications", "conditions", "symptoms", "diagnoses", "treatments",
	"procedures", "allergies", "immunizations", "vaccinations",
	"addresses", "phones", "emails", "contacts", "references",
	"hobbies", "interests", "languages", "memberships", "affiliations",
}

// IsListField reports whether the field name matches the list-field lexicon
// (case-insensitive substring match). A nil or empty keyword set means the
// built-in lexicon.
func IsListField(field string, keywords []string) bool {
	if len(keywords) == 0 {
		keywords = DefaultListFieldKeywords
	}
	name := strings.ToLower(field)
	for _, kw := range keywords {
		if strings.Contains(name, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
