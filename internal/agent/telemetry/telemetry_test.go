package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/Kelmain/deep-search/config"
)

func enabled() config.TelemetryConfig {
	return config.TelemetryConfig{Enabled: true, CostTracking: true}
}

func TestRecordRunEventUpdatesMetrics(t *testing.T) {
	tele := NewTelemetry(enabled())

	tele.RecordRunEvent(context.Background(), RunEvent{
		ID: "r1", Success: true, Duration: 2 * time.Second,
		SearchesPlanned: 4, SearchesCompleted: 3, Cost: 0.5, TokensUsed: 100,
	})
	tele.RecordRunEvent(context.Background(), RunEvent{
		ID: "r2", Success: false, Duration: 4 * time.Second,
	})

	m := tele.GetMetrics()
	if m.TotalRuns != 2 || m.SuccessfulRuns != 1 || m.FailedRuns != 1 {
		t.Fatalf("unexpected run counts: %+v", m)
	}
	if m.AverageRunTime != 3*time.Second {
		t.Fatalf("unexpected average: %v", m.AverageRunTime)
	}
	if m.SearchesPlanned != 4 {
		t.Fatalf("unexpected planned searches: %d", m.SearchesPlanned)
	}

	c := tele.GetCostSummary()
	if c.TotalCost != 0.5 || c.TotalTokens != 100 {
		t.Fatalf("unexpected costs: %+v", c)
	}
}

func TestRecordLLMEventTracksModelAndPhase(t *testing.T) {
	tele := NewTelemetry(enabled())

	tele.RecordLLMEvent(context.Background(), LLMEvent{
		Phase: "plan", Model: "gemini-fast", InputTokens: 10, OutputTokens: 20,
		Success: true, Cost: 0.01,
	})

	m := tele.GetMetrics()
	if m.LLMRequests["gemini-fast"] != 1 || m.LLMTokensUsed["gemini-fast"] != 30 {
		t.Fatalf("unexpected llm metrics: %+v", m)
	}
	c := tele.GetCostSummary()
	if c.PhaseCosts["plan"] != 0.01 || c.ModelCosts["gemini-fast"] != 0.01 {
		t.Fatalf("unexpected cost split: %+v", c)
	}
}

func TestDisabledTelemetryRecordsNothing(t *testing.T) {
	tele := NewTelemetry(config.TelemetryConfig{})

	tele.RecordRunEvent(context.Background(), RunEvent{ID: "r", Success: true})
	tele.RecordSearchEvent(context.Background(), SearchEvent{Success: true})

	m := tele.GetMetrics()
	if m.TotalRuns != 0 || m.SearchesCompleted != 0 {
		t.Fatalf("expected no recording when disabled: %+v", m)
	}
}
