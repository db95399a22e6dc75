package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Summary is the final structured output. It is only ever produced fully
// schema-valid; a response that cannot be repaired into this shape is a
// synthesis failure, never a partial summary.
type Summary struct {
	Hypothesis  string   `json:"hypothesis"`
	Methodology string   `json:"methodology"`
	Findings    []string `json:"findings"`
	Keywords    []string `json:"keywords"`
}

var summaryFields = []string{"hypothesis", "methodology", "findings", "keywords"}

// ParseSummary validates a raw model response against the summary schema:
// a single JSON object carrying exactly the expected fields with the
// expected types. Fields may be empty but must be present. The error text is
// fed back to the model on repair attempts, so it names the offending field.
func ParseSummary(raw string) (*Summary, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return nil, fmt.Errorf("response contains no JSON object")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, fmt.Errorf("response is not a valid JSON object: %v", err)
	}

	for _, name := range summaryFields {
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("missing required field %q", name)
		}
	}
	for name := range fields {
		known := false
		for _, want := range summaryFields {
			if name == want {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unexpected field %q", name)
		}
	}

	var s Summary
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("field has wrong type: %v", err)
	}

	// Null arrays decode to nil; the schema wants explicit (possibly empty)
	// sequences.
	if s.Findings == nil {
		s.Findings = []string{}
	}
	if s.Keywords == nil {
		s.Keywords = []string{}
	}
	return &s, nil
}

// extractJSONObject strips markdown code fences and any prose around the
// outermost JSON object. Models frequently wrap JSON that way.
func extractJSONObject(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return cleaned[start : end+1]
}
