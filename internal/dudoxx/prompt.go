// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dudoxx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// DefaultSystemPrompt instructs the model to act as a field extractor.
var DefaultSystemPrompt = "You are an expert data extractor. Only output the fields requested, based solely on the given text."

// extractionPromptTmpl is the user prompt sent with each segment. It
// enumerates the requested fields, pins down the sentinel for missing
// values, and shows the expected date formatting.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`Extract the following fields from the text: {{.FieldList}}.
If a field is not explicitly stated in the text, mark it as 'unknown'.
Provide the answer in JSON format.

For date fields, use the format: dd/mm/YYYY
For example:
- "February 9th 1949" → 09/02/1949
- "Feb 9, 1949" → 09/02/1949
- "9th Feb 1949" → 09/02/1949

Do not add information not found in the text. Only extract what is explicitly stated.

Text:
{{.Text}}
`))

// buildExtractionPrompt renders the per-segment extraction prompt.
func buildExtractionPrompt(text string, fields []string) string {
	var buf bytes.Buffer
	data := struct {
		FieldList string
		Text      string
	}{
		FieldList: strings.Join(fields, ", "),
		Text:      text,
	}
	if err := extractionPromptTmpl.Execute(&buf, data); err != nil {
		// The template has no failure modes beyond programmer error.
		panic(err)
	}
	return buf.String()
}

// buildDedupSystemPrompt frames the model as a deduplication assistant for
// one field.
func buildDedupSystemPrompt(field string) string {
	return fmt.Sprintf(`You are an expert data deduplication assistant. Your task is to deduplicate a list of %s items.
Some items may refer to the same information but with different wording, formatting, or level of detail.
Identify duplicate or similar items and merge them into a single, comprehensive item.
Always prefer the more detailed, complete, and well-formatted version when merging duplicates.

IMPORTANT: You must return ONLY a JSON array of strings, with no additional explanation, preamble, or conclusion.
Do not invent or hallucinate any information not present in the input data.`, field)
}

// dedupPromptTmpl is the user prompt for list-field deduplication, with a
// worked example showing the expected flat-array response.
var dedupPromptTmpl = template.Must(template.New("dedup").Parse(`Here is a list of {{.Field}} items that may contain duplicates:

{{.Items}}

Please deduplicate this list by:
1. Identifying items that refer to the same information
2. Merging similar items into a single, comprehensive item
3. Keeping the most detailed, complete, and well-formatted version

EXPECTED OUTPUT FORMAT:
Return ONLY a JSON array of strings like this example:
["Item 1", "Item 2", "Item 3"]

For example, if the input is:
["Type 2 Diabetes (diagnosed March 15, 2010)", "Diagnosed with Type 2 Diabetes (March 15, 2010)", "Hypertension since 2005", "High blood pressure (Hypertension) since 2005"]

Your response should be:
["Type 2 Diabetes (diagnosed March 15, 2010)", "Hypertension since 2005"]

DO NOT include any explanations, notes, or additional information in your response.
DO NOT structure your response as an object with keys.
ONLY return a flat array of strings.
`))

// buildDedupPrompt renders the deduplication prompt for one field's items.
func buildDedupPrompt(field string, items []string) (string, error) {
	itemsJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling items: %w", err)
	}

	var buf bytes.Buffer
	data := struct {
		Field string
		Items string
	}{
		Field: field,
		Items: string(itemsJSON),
	}
	if err := dedupPromptTmpl.Execute(&buf, data); err != nil {
		panic(err)
	}
	return buf.String(), nil
}
