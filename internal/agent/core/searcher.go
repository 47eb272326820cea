package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Kelmain/deep-search/config"
	"github.com/Kelmain/deep-search/internal/agent/telemetry"
	"github.com/Kelmain/deep-search/tools/websearch"
	"github.com/Kelmain/deep-search/utils"
)

// Searcher executes a search plan with bounded concurrency. Individual
// search failures are dropped; the fan-out itself never fails.
type Searcher struct {
	config    *config.Config
	llm       LLMProvider
	web       websearch.WebSearcher
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewSearcher creates a new search agent
func NewSearcher(cfg *config.Config, llm LLMProvider, web websearch.WebSearcher, tele *telemetry.Telemetry) *Searcher {
	return &Searcher{
		config:    cfg,
		llm:       llm,
		web:       web,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[SEARCH-AGENT] ", log.LstdFlags),
	}
}

const searcherInstructions = `You are a research assistant. Given a search term and results from a web search, produce a concise summary of the results. The summary must be 2-3 paragraphs and less than 300 words. Capture the main points. Write succinctly, no need for complete sentences or perfect grammar. This will be consumed by someone synthesizing a report, so it is vital you capture the essence and ignore any fluff. Do not include any additional commentary other than the summary itself.`

// Perform runs every planned search and returns the summaries in completion
// order. onProgress, when set, is called after each search finishes.
func (s *Searcher) Perform(ctx context.Context, plan WebSearchPlan, onProgress func(done, total int)) []string {
	total := len(plan.Searches)
	if total == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		results []string
		done    int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Search.MaxConcurrent)
	for _, item := range plan.Searches {
		item := item
		g.Go(func() error {
			summary, err := s.search(gctx, item)

			mu.Lock()
			done++
			completed := done
			if err != nil {
				s.logger.Printf("search %q dropped: %v", utils.Truncate(item.Query, 60), err)
			} else {
				results = append(results, summary)
			}
			mu.Unlock()

			if onProgress != nil {
				onProgress(completed, total)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Printf("searching complete: %d/%d succeeded", len(results), total)
	return results
}

// search runs one web search and summarizes its hits with the LLM
func (s *Searcher) search(ctx context.Context, item WebSearchItem) (string, error) {
	searchStart := time.Now()
	hits, err := s.web.Discover(ctx, item.Query, s.config.Search.SnippetsPerQ)
	s.telemetry.RecordSearchEvent(ctx, telemetry.SearchEvent{
		Query:    item.Query,
		Duration: time.Since(searchStart),
		Success:  err == nil,
		Results:  len(hits),
	})
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}

	var sb strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", h.Title, h.URL, h.Snippet)
	}
	if sb.Len() == 0 {
		sb.WriteString("(no results)\n")
	}

	model := s.config.LLM.Routing.Search
	prompt := fmt.Sprintf("%s\n\nSearch term: %s\nReason for searching: %s\n\nSearch results:\n%s",
		searcherInstructions, item.Query, item.Reason, sb.String())

	start := time.Now()
	out, inTok, outTok, err := s.llm.GenerateWithTokens(ctx, prompt, model, nil)
	s.telemetry.RecordLLMEvent(ctx, telemetry.LLMEvent{
		Phase:        "search",
		Model:        model,
		InputTokens:  inTok,
		OutputTokens: outTok,
		Duration:     time.Since(start),
		Success:      err == nil,
		Error:        errString(err),
		Cost:         s.llm.CalculateCost(inTok, outTok, model),
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(out), nil
}
