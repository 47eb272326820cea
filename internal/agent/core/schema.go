package core

import (
	"encoding/json"
	"strings"
)

// Model responses arrive in one of three shapes: the expected object, the
// expected object wrapped under a response-ish key, or garbage. Each decode
// routine returns (value, true) for the first two and (zero, false) for the
// last; callers decide what the zero value means for their phase.

const maxClarifyingQuestions = 3

var wrapperKeys = []string{"structured_response", "response", "result", "data"}

// decodeQuestions extracts clarification questions from a model response.
func decodeQuestions(raw string) ([]string, bool) {
	blob := extractFirstJSON(raw)

	var parsed struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(blob), &parsed); err == nil && parsed.Questions != nil {
		return capQuestions(parsed.Questions), true
	}

	m, ok := decodeMap(blob)
	if !ok {
		return nil, false
	}
	v, ok := lookup(m, "questions")
	if !ok {
		return nil, false
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	qs := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			qs = append(qs, s)
		}
	}
	return capQuestions(qs), true
}

// decodePlan extracts a search plan from a model response.
func decodePlan(raw string) (WebSearchPlan, bool) {
	blob := extractFirstJSON(raw)

	var parsed struct {
		Searches *[]WebSearchItem `json:"searches"`
	}
	if err := json.Unmarshal([]byte(blob), &parsed); err == nil && parsed.Searches != nil {
		return WebSearchPlan{Searches: dropEmptySearches(*parsed.Searches)}, true
	}

	m, ok := decodeMap(blob)
	if !ok {
		return WebSearchPlan{}, false
	}
	v, ok := lookup(m, "searches")
	if !ok {
		return WebSearchPlan{}, false
	}
	items, ok := v.([]interface{})
	if !ok {
		return WebSearchPlan{}, false
	}
	var searches []WebSearchItem
	for _, it := range items {
		im, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		q, _ := im["query"].(string)
		r, _ := im["reason"].(string)
		searches = append(searches, WebSearchItem{Query: q, Reason: r})
	}
	return WebSearchPlan{Searches: dropEmptySearches(searches)}, true
}

// decodeReport extracts a final report from a model response.
func decodeReport(raw string) (ReportData, bool) {
	blob := extractFirstJSON(raw)

	var parsed struct {
		MarkdownReport   *string  `json:"markdown_report"`
		ExecutiveSummary string   `json:"executive_summary"`
		KeyInsights      []string `json:"key_insights"`
	}
	if err := json.Unmarshal([]byte(blob), &parsed); err == nil && parsed.MarkdownReport != nil {
		return ReportData{
			MarkdownReport:   *parsed.MarkdownReport,
			ExecutiveSummary: parsed.ExecutiveSummary,
			KeyInsights:      parsed.KeyInsights,
		}, true
	}

	m, ok := decodeMap(blob)
	if !ok {
		return ReportData{}, false
	}
	v, ok := lookup(m, "markdown_report")
	if !ok {
		return ReportData{}, false
	}
	report, ok := v.(string)
	if !ok {
		return ReportData{}, false
	}
	out := ReportData{MarkdownReport: report}
	if s, ok := lookup(m, "executive_summary"); ok {
		out.ExecutiveSummary, _ = s.(string)
	}
	if ki, ok := lookup(m, "key_insights"); ok {
		if items, ok := ki.([]interface{}); ok {
			for _, it := range items {
				if s, ok := it.(string); ok {
					out.KeyInsights = append(out.KeyInsights, s)
				}
			}
		}
	}
	return out, true
}

func capQuestions(qs []string) []string {
	if len(qs) > maxClarifyingQuestions {
		qs = qs[:maxClarifyingQuestions]
	}
	return qs
}

func dropEmptySearches(items []WebSearchItem) []WebSearchItem {
	out := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.Query) == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}

func decodeMap(blob string) (map[string]interface{}, bool) {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &m); err != nil {
		return nil, false
	}
	return m, true
}

// lookup finds key either directly or one level down under a wrapper key.
func lookup(m map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for _, wk := range wrapperKeys {
		if inner, ok := m[wk].(map[string]interface{}); ok {
			if v, ok := inner[key]; ok {
				return v, true
			}
		}
	}
	return nil, false
}

// extractFirstJSON attempts to find the first top-level JSON object in a string
func extractFirstJSON(s string) string {
	start := -1
	depth := 0
	for i, ch := range s {
		if ch == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == '}' {
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return s
}
