package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kelmain/deep-search/config"
	"github.com/Kelmain/deep-search/internal/agent/telemetry"
	"github.com/Kelmain/deep-search/tools/websearch"
)

// ErrEmptyQuery is returned when a run is requested for a blank query
var ErrEmptyQuery = errors.New("query must not be empty")

// Orchestrator drives a research run through its phases: optional
// clarification, planning, the search fan-out and report writing.
type Orchestrator struct {
	config    *config.Config
	logger    *log.Logger
	telemetry *telemetry.Telemetry

	clarifier   *Clarifier
	planner     *Planner
	searcher    *Searcher
	writer      *Writer
	llmProvider LLMProvider

	// Processing state
	processing map[string]*RunStatus
	mu         sync.RWMutex
}

var orchestratorTracer trace.Tracer = otel.Tracer("deep-search/internal/agent/orchestrator")

// NewOrchestrator creates a new orchestrator instance. The LLM provider and
// web searcher are injected so callers control the outbound dependencies.
func NewOrchestrator(cfg *config.Config, logger *log.Logger, tele *telemetry.Telemetry, llm LLMProvider, web websearch.WebSearcher) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCHESTRATOR] ", log.LstdFlags)
	}
	return &Orchestrator{
		config:      cfg,
		logger:      logger,
		telemetry:   tele,
		clarifier:   NewClarifier(cfg, llm, tele),
		planner:     NewPlanner(cfg, llm, tele),
		searcher:    NewSearcher(cfg, llm, web, tele),
		writer:      NewWriter(cfg, llm, tele),
		llmProvider: llm,
		processing:  make(map[string]*RunStatus),
	}
}

// LLM exposes the orchestrator's underlying LLM provider.
func (o *Orchestrator) LLM() LLMProvider {
	return o.llmProvider
}

// GetClarificationQuestions runs the first half of the two-phase protocol:
// the caller shows these questions, collects answers and then calls Run.
func (o *Orchestrator) GetClarificationQuestions(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	return o.clarifier.Questions(ctx, query), nil
}

// Run starts a research run and returns its event channel. The channel
// yields progress events followed by exactly one terminal event (report or
// error) and is then closed. An empty query fails before anything runs.
func (o *Orchestrator) Run(ctx context.Context, query string, questions, answers []string) (<-chan RunEvent, string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, "", ErrEmptyQuery
	}

	runID := uuid.New().String()
	status := &RunStatus{
		RunID:       runID,
		Status:      "pending",
		CreatedAt:   time.Now(),
		LastUpdated: time.Now(),
	}
	o.mu.Lock()
	o.processing[runID] = status
	o.mu.Unlock()

	// cap fits the full progress sequence, the run never blocks on a slow reader
	events := make(chan RunEvent, 16)
	go o.run(ctx, runID, status, query, questions, answers, events)
	return events, runID, nil
}

func (o *Orchestrator) run(ctx context.Context, runID string, status *RunStatus, query string, questions, answers []string, events chan<- RunEvent) {
	defer close(events)
	defer func() {
		o.mu.Lock()
		delete(o.processing, runID)
		o.mu.Unlock()
	}()

	startTime := time.Now()
	ctx, span := orchestratorTracer.Start(ctx, "research.run",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	runEvent := telemetry.RunEvent{
		ID:        runID,
		Query:     query,
		StartTime: startTime,
	}
	defer func() {
		runEvent.EndTime = time.Now()
		runEvent.Duration = runEvent.EndTime.Sub(runEvent.StartTime)
		o.telemetry.RecordRunEvent(ctx, runEvent)
	}()

	progress := func(msg string) {
		events <- RunEvent{Kind: EventProgress, Message: msg}
	}
	fail := func(span trace.Span, phase string, err error) {
		o.updateStatus(status, "failed", 0.0, fmt.Sprintf("%s failed: %v", phase, err))
		o.mu.Lock()
		status.Error = err.Error()
		o.mu.Unlock()
		runEvent.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		events <- RunEvent{Kind: EventError, Err: err}
	}

	o.logger.Printf("Starting research run: %s", runID)
	progress("Starting research...")

	searchQuery := query
	if len(questions) > 0 && len(answers) > 0 {
		progress("Processing your answers...")
		searchQuery = BuildClarifiedQuery(query, questions, answers)
	} else {
		progress("Starting research without clarification...")
	}

	// Phase 1: Planning
	o.updateStatus(status, "planning", 0.1, "Planning searches")
	planCtx, planSpan := orchestratorTracer.Start(ctx, "research.plan")
	plan, err := o.planner.PlanSearches(planCtx, searchQuery)
	if err != nil {
		fail(planSpan, "Planning", err)
		planSpan.End()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	planSpan.SetAttributes(attribute.Int("plan.search_count", len(plan.Searches)))
	planSpan.SetStatus(codes.Ok, "completed")
	planSpan.End()
	progress("Searches planned, starting to search...")

	// Phase 2: Search fan-out
	o.mu.Lock()
	status.TotalSearches = len(plan.Searches)
	o.mu.Unlock()
	o.updateStatus(status, "searching", 0.3, "Executing searches")
	runEvent.SearchesPlanned = len(plan.Searches)

	searchCtx, searchSpan := orchestratorTracer.Start(ctx, "research.search")
	summaries := o.searcher.Perform(searchCtx, plan, func(done, total int) {
		o.mu.Lock()
		status.CompletedSearches = done
		status.Progress = 0.3 + 0.4*float64(done)/float64(total)
		status.LastUpdated = time.Now()
		o.mu.Unlock()
	})
	searchSpan.SetAttributes(attribute.Int("search.result_count", len(summaries)))
	searchSpan.SetStatus(codes.Ok, "completed")
	searchSpan.End()
	runEvent.SearchesCompleted = len(summaries)
	progress("Searches complete, writing report...")

	// Phase 3: Writing. The writer gets the original query, not the
	// clarified one.
	o.updateStatus(status, "writing", 0.8, "Writing report")
	writeCtx, writeSpan := orchestratorTracer.Start(ctx, "research.write")
	report, err := o.writer.WriteReport(writeCtx, query, summaries)
	if err != nil {
		fail(writeSpan, "Report writing", err)
		writeSpan.End()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	writeSpan.SetStatus(codes.Ok, "completed")
	writeSpan.End()
	progress("Report written, creating document...")
	progress("Document created, research complete")

	o.updateStatus(status, "completed", 1.0, "Research complete")
	o.logger.Printf("Completed research run: %s in %v", runID, time.Since(startTime))
	span.SetStatus(codes.Ok, "completed")
	runEvent.Success = true

	events <- RunEvent{Kind: EventReport, Report: &report}
}

// BuildClarifiedQuery combines the original query with answered clarifying
// questions. Pairing is positional, stops at the shorter list, and skips
// questions left unanswered.
func BuildClarifiedQuery(query string, questions, answers []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original query: %s\n\nClarification:\n", query)
	n := len(questions)
	if len(answers) < n {
		n = len(answers)
	}
	for i := 0; i < n; i++ {
		if strings.TrimSpace(answers[i]) == "" {
			continue
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", questions[i], answers[i])
	}
	return b.String()
}

// GetStatus returns the live status of a run
func (o *Orchestrator) GetStatus(runID string) (RunStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	status, ok := o.processing[runID]
	if !ok {
		return RunStatus{}, fmt.Errorf("run not found: %s", runID)
	}
	return *status, nil
}

func (o *Orchestrator) updateStatus(status *RunStatus, newStatus string, progress float64, currentStep string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	status.Status = newStatus
	status.Progress = progress
	status.CurrentStep = currentStep
	status.LastUpdated = time.Now()
}
