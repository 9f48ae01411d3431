package tools

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Structured generation arrives as raw JSON text fragments. The
// helpers here repair truncated JSON mid-stream so partial objects can
// be surfaced as deltas before generation finishes.

// codeObject is the schema of code-document generation.
type codeObject struct {
	Code string `json:"code"`
}

// suggestionElement is one element of the suggestions array schema.
type suggestionElement struct {
	OriginalSentence  string `json:"originalSentence"`
	SuggestedSentence string `json:"suggestedSentence"`
	Description       string `json:"description"`
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseCodeObject extracts the code field from possibly-truncated JSON.
// Returns false when no code is recoverable yet.
func parseCodeObject(raw string) (string, bool) {
	repaired, err := jsonrepair.JSONRepair(stripFences(raw))
	if err != nil {
		return "", false
	}
	var obj codeObject
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		return "", false
	}
	if obj.Code == "" {
		return "", false
	}
	return obj.Code, true
}

// parseSuggestionElements extracts array elements from
// possibly-truncated JSON. The final element of a truncated stream may
// itself be incomplete; callers decide how many to trust.
func parseSuggestionElements(raw string) []suggestionElement {
	repaired, err := jsonrepair.JSONRepair(stripFences(raw))
	if err != nil {
		return nil
	}
	var elements []suggestionElement
	if err := json.Unmarshal([]byte(repaired), &elements); err != nil {
		return nil
	}
	return elements
}
