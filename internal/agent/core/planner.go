package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Kelmain/deep-search/config"
	"github.com/Kelmain/deep-search/internal/agent/telemetry"
)

// Planner turns a research query into a set of web searches
type Planner struct {
	config    *config.Config
	llm       LLMProvider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewPlanner creates a new planner agent
func NewPlanner(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *Planner {
	return &Planner{
		config:    cfg,
		llm:       llm,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

const plannerInstructionsFmt = `You are a helpful research assistant. Given a research query, come up with a set of web searches to perform to best answer the query. Output between 1 and %d search terms. For each search give the term to search for and your reasoning for why this search is important to the query.

Return ONLY strict JSON in this exact format:
{"searches": [{"reason": "why this search matters", "query": "the search term"}]}`

// PlanSearches produces the search plan for a query. A provider failure is a
// hard error; an unparseable response degrades to an empty plan.
func (p *Planner) PlanSearches(ctx context.Context, query string) (WebSearchPlan, error) {
	model := p.config.LLM.Routing.Plan
	maxSearches := p.config.Search.MaxSearches
	prompt := fmt.Sprintf("%s\n\nQuery: %s", fmt.Sprintf(plannerInstructionsFmt, maxSearches), query)

	start := time.Now()
	out, inTok, outTok, err := p.llm.GenerateWithTokens(ctx, prompt, model, nil)
	p.telemetry.RecordLLMEvent(ctx, telemetry.LLMEvent{
		Phase:        "plan",
		Model:        model,
		InputTokens:  inTok,
		OutputTokens: outTok,
		Duration:     time.Since(start),
		Success:      err == nil,
		Error:        errString(err),
		Cost:         p.llm.CalculateCost(inTok, outTok, model),
	})
	if err != nil {
		return WebSearchPlan{}, fmt.Errorf("planning failed: %w", err)
	}

	plan, ok := decodePlan(out)
	if !ok {
		p.logger.Printf("planning response unparseable, proceeding with empty plan")
		return WebSearchPlan{}, nil
	}
	if len(plan.Searches) > maxSearches {
		plan.Searches = plan.Searches[:maxSearches]
	}
	p.logger.Printf("planned %d searches", len(plan.Searches))
	return plan, nil
}
