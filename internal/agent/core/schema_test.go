package core

import "testing"

func TestDecodeQuestionsDirectShape(t *testing.T) {
	raw := `Here you go:
{"questions": ["What time frame?", "Which region?", "What depth?"]}`
	qs, ok := decodeQuestions(raw)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if len(qs) != 3 || qs[1] != "Which region?" {
		t.Fatalf("unexpected questions: %v", qs)
	}
}

func TestDecodeQuestionsWrappedShape(t *testing.T) {
	raw := `{"structured_response": {"questions": ["Only one?"]}}`
	qs, ok := decodeQuestions(raw)
	if !ok || len(qs) != 1 {
		t.Fatalf("expected one question, got ok=%t qs=%v", ok, qs)
	}
}

func TestDecodeQuestionsCapsAtThree(t *testing.T) {
	raw := `{"questions": ["a", "b", "c", "d", "e"]}`
	qs, ok := decodeQuestions(raw)
	if !ok || len(qs) != 3 {
		t.Fatalf("expected cap at 3, got ok=%t qs=%v", ok, qs)
	}
}

func TestDecodeQuestionsGarbage(t *testing.T) {
	if _, ok := decodeQuestions("I cannot help with that."); ok {
		t.Fatalf("expected parse failure")
	}
	if _, ok := decodeQuestions(`{"unrelated": true}`); ok {
		t.Fatalf("expected parse failure on missing key")
	}
}

func TestDecodePlanDirectShape(t *testing.T) {
	raw := `{"searches": [{"reason": "context", "query": "go concurrency"}, {"reason": "depth", "query": "errgroup patterns"}]}`
	plan, ok := decodePlan(raw)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if len(plan.Searches) != 2 || plan.Searches[0].Query != "go concurrency" {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestDecodePlanWrappedShape(t *testing.T) {
	raw := `{"response": {"searches": [{"reason": "r", "query": "q"}]}}`
	plan, ok := decodePlan(raw)
	if !ok || len(plan.Searches) != 1 {
		t.Fatalf("expected one search, got ok=%t plan=%+v", ok, plan)
	}
}

func TestDecodePlanDropsBlankQueries(t *testing.T) {
	raw := `{"searches": [{"reason": "r", "query": "  "}, {"reason": "r", "query": "kept"}]}`
	plan, ok := decodePlan(raw)
	if !ok || len(plan.Searches) != 1 || plan.Searches[0].Query != "kept" {
		t.Fatalf("expected blank queries dropped, got %+v", plan)
	}
}

func TestDecodePlanGarbage(t *testing.T) {
	if _, ok := decodePlan("not json at all"); ok {
		t.Fatalf("expected parse failure")
	}
}

func TestDecodeReportDirectShape(t *testing.T) {
	raw := `{"markdown_report": "# Report", "executive_summary": "Short.", "key_insights": ["one", "two"]}`
	rep, ok := decodeReport(raw)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if rep.MarkdownReport != "# Report" || len(rep.KeyInsights) != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestDecodeReportWrappedShape(t *testing.T) {
	raw := `{"result": {"markdown_report": "body", "executive_summary": "sum"}}`
	rep, ok := decodeReport(raw)
	if !ok || rep.MarkdownReport != "body" || rep.ExecutiveSummary != "sum" {
		t.Fatalf("unexpected report: ok=%t %+v", ok, rep)
	}
}

func TestDecodeReportGarbage(t *testing.T) {
	if _, ok := decodeReport(`{"summary_only": "nope"}`); ok {
		t.Fatalf("expected parse failure")
	}
}

func TestExtractFirstJSONFindsBalancedObject(t *testing.T) {
	s := `prefix {"a": {"b": 1}} suffix {"c": 2}`
	got := extractFirstJSON(s)
	if got != `{"a": {"b": 1}}` {
		t.Fatalf("unexpected extraction: %s", got)
	}
}
