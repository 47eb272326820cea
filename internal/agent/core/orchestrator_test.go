package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const (
	planResponse   = `{"searches": [{"reason": "r1", "query": "q1"}, {"reason": "r2", "query": "q2"}]}`
	reportResponse = `{"markdown_report": "# Findings", "executive_summary": "Done.", "key_insights": ["a"]}`
)

// routeLLM answers each phase by recognizing its instruction text
func routeLLM(planOut string, planErr error, reportOut string, reportErr error) *stubLLM {
	return &stubLLM{generate: func(prompt, model string) (string, error) {
		switch {
		case strings.Contains(prompt, "set of web searches"):
			return planOut, planErr
		case strings.Contains(prompt, "senior researcher"):
			return reportOut, reportErr
		case strings.Contains(prompt, "concise summary"):
			return "summary", nil
		default:
			return `{"questions": ["one?", "two?", "three?"]}`, nil
		}
	}}
}

func collect(t *testing.T, events <-chan RunEvent) []RunEvent {
	t.Helper()
	var out []RunEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestRunRejectsEmptyQuery(t *testing.T) {
	llm := routeLLM(planResponse, nil, reportResponse, nil)
	orch := NewOrchestrator(testConfig(), nil, testTelemetry(), llm, stubWeb{})

	if _, _, err := orch.Run(context.Background(), "   ", nil, nil); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	if prompts := llm.recordedPrompts(); len(prompts) != 0 {
		t.Fatalf("expected no LLM calls for empty query, got %d", len(prompts))
	}
}

func TestRunEmitsProgressThenSingleReport(t *testing.T) {
	llm := routeLLM(planResponse, nil, reportResponse, nil)
	orch := NewOrchestrator(testConfig(), nil, testTelemetry(), llm, stubWeb{})

	events, runID, err := orch.Run(context.Background(), "research topic", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runID == "" {
		t.Fatalf("expected a run id")
	}

	all := collect(t, events)
	if len(all) == 0 {
		t.Fatalf("expected events")
	}
	if all[0].Kind != EventProgress || all[0].Message != "Starting research..." {
		t.Fatalf("unexpected first event: %+v", all[0])
	}

	terminal := 0
	for i, ev := range all {
		if ev.Kind == EventReport || ev.Kind == EventError {
			terminal++
			if i != len(all)-1 {
				t.Fatalf("terminal event not last: index %d of %d", i, len(all))
			}
		}
	}
	if terminal != 1 {
		t.Fatalf("expected exactly one terminal event, got %d", terminal)
	}
	last := all[len(all)-1]
	if last.Kind != EventReport || last.Report == nil || last.Report.MarkdownReport != "# Findings" {
		t.Fatalf("unexpected terminal event: %+v", last)
	}
}

func TestRunWithoutClarificationMessage(t *testing.T) {
	llm := routeLLM(planResponse, nil, reportResponse, nil)
	orch := NewOrchestrator(testConfig(), nil, testTelemetry(), llm, stubWeb{})

	events, _, err := orch.Run(context.Background(), "topic", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var messages []string
	for _, ev := range collect(t, events) {
		messages = append(messages, ev.Message)
	}
	joined := strings.Join(messages, "|")
	if !strings.Contains(joined, "Starting research without clarification...") {
		t.Fatalf("missing skip-clarification message in %q", joined)
	}
	if strings.Contains(joined, "Processing your answers...") {
		t.Fatalf("unexpected answers message in %q", joined)
	}
}

func TestRunUsesClarifiedQueryForPlanningOnly(t *testing.T) {
	llm := routeLLM(planResponse, nil, reportResponse, nil)
	orch := NewOrchestrator(testConfig(), nil, testTelemetry(), llm, stubWeb{})

	events, _, err := orch.Run(context.Background(), "base query",
		[]string{"Q1?", "Q2?"}, []string{"A1", "A2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	collect(t, events)

	var planPrompt, writePrompt string
	for _, p := range llm.recordedPrompts() {
		if strings.Contains(p, "set of web searches") {
			planPrompt = p
		}
		if strings.Contains(p, "senior researcher") {
			writePrompt = p
		}
	}
	if !strings.Contains(planPrompt, "Q: Q1?\nA: A1") {
		t.Fatalf("planner did not receive clarified query: %q", planPrompt)
	}
	if !strings.Contains(writePrompt, "Original query: base query") {
		t.Fatalf("writer did not receive original query: %q", writePrompt)
	}
	if strings.Contains(writePrompt, "Clarification:") {
		t.Fatalf("writer received clarified query: %q", writePrompt)
	}
}

func TestRunPlannerFailureIsTerminalError(t *testing.T) {
	llm := routeLLM("", errors.New("provider down"), reportResponse, nil)
	orch := NewOrchestrator(testConfig(), nil, testTelemetry(), llm, stubWeb{})

	events, _, err := orch.Run(context.Background(), "topic", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all := collect(t, events)
	last := all[len(all)-1]
	if last.Kind != EventError || last.Err == nil {
		t.Fatalf("expected terminal error event, got %+v", last)
	}
	if !strings.Contains(last.Err.Error(), "planning failed") {
		t.Fatalf("unexpected error: %v", last.Err)
	}
	for _, ev := range all[:len(all)-1] {
		if ev.Kind != EventProgress {
			t.Fatalf("expected only progress before terminal, got %+v", ev)
		}
	}
}

func TestRunWriterFailureIsTerminalError(t *testing.T) {
	llm := routeLLM(planResponse, nil, "", errors.New("provider down"))
	orch := NewOrchestrator(testConfig(), nil, testTelemetry(), llm, stubWeb{})

	events, _, err := orch.Run(context.Background(), "topic", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all := collect(t, events)
	last := all[len(all)-1]
	if last.Kind != EventError || !strings.Contains(last.Err.Error(), "report writing failed") {
		t.Fatalf("expected writer failure, got %+v", last)
	}
}

func TestRunEmptyPlanStillProducesReport(t *testing.T) {
	llm := routeLLM(`{"searches": []}`, nil, reportResponse, nil)
	orch := NewOrchestrator(testConfig(), nil, testTelemetry(), llm, stubWeb{})

	events, _, err := orch.Run(context.Background(), "topic", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all := collect(t, events)
	last := all[len(all)-1]
	if last.Kind != EventReport {
		t.Fatalf("expected report for empty plan, got %+v", last)
	}
}

func TestRunsAreIndependent(t *testing.T) {
	llm := routeLLM(planResponse, nil, reportResponse, nil)
	orch := NewOrchestrator(testConfig(), nil, testTelemetry(), llm, stubWeb{})

	for i := 0; i < 2; i++ {
		events, runID, err := orch.Run(context.Background(), "topic", nil, nil)
		if err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		all := collect(t, events)
		if all[len(all)-1].Kind != EventReport {
			t.Fatalf("run %d did not complete: %+v", i, all[len(all)-1])
		}
		if _, err := orch.GetStatus(runID); err == nil {
			t.Fatalf("expected status to be cleared after run %d", i)
		}
	}
}

func TestBuildClarifiedQuery(t *testing.T) {
	got := BuildClarifiedQuery("base", []string{"Q1?", "Q2?", "Q3?"}, []string{"A1", "", "A3"})
	if !strings.HasPrefix(got, "Original query: base\n\nClarification:\n") {
		t.Fatalf("unexpected prefix: %q", got)
	}
	if !strings.Contains(got, "Q: Q1?\nA: A1\n\n") || !strings.Contains(got, "Q: Q3?\nA: A3\n\n") {
		t.Fatalf("missing answered pairs: %q", got)
	}
	if strings.Contains(got, "Q2?") {
		t.Fatalf("unanswered question included: %q", got)
	}
}

func TestBuildClarifiedQueryStopsAtShorterList(t *testing.T) {
	got := BuildClarifiedQuery("base", []string{"Q1?", "Q2?", "Q3?"}, []string{"A1"})
	if strings.Contains(got, "Q2?") || strings.Contains(got, "Q3?") {
		t.Fatalf("pairing ran past answers: %q", got)
	}
	got = BuildClarifiedQuery("base", []string{"Q1?"}, []string{"A1", "A2"})
	if strings.Contains(got, "A2") {
		t.Fatalf("pairing ran past questions: %q", got)
	}
}

func TestGetClarificationQuestions(t *testing.T) {
	llm := routeLLM(planResponse, nil, reportResponse, nil)
	orch := NewOrchestrator(testConfig(), nil, testTelemetry(), llm, stubWeb{})

	if _, err := orch.GetClarificationQuestions(context.Background(), ""); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	qs, err := orch.GetClarificationQuestions(context.Background(), "topic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("expected 3 questions, got %v", qs)
	}
}
