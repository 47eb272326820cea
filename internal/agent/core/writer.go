package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Kelmain/deep-search/config"
	"github.com/Kelmain/deep-search/internal/agent/telemetry"
)

// Writer synthesizes search summaries into the final report
type Writer struct {
	config    *config.Config
	llm       LLMProvider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewWriter creates a new writer agent
func NewWriter(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *Writer {
	return &Writer{
		config:    cfg,
		llm:       llm,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[WRITER] ", log.LstdFlags),
	}
}

const writerInstructions = `You are a senior researcher tasked with writing a cohesive report for a research query. You will be provided with the original query and summarized results of web searches done by a research assistant.

First come up with an outline for the report that describes its structure and flow, then generate the report. The report must be in markdown format with six sections: introduction, background, key findings, analysis, conclusion and sources. It should be detailed, aim for 1000-2000 words. Respond in the same language as the original query.

Return ONLY strict JSON in this exact format:
{"markdown_report": "the full report in markdown", "executive_summary": "a 2-3 sentence summary", "key_insights": ["insight 1", "insight 2"]}`

// fallbackReport is returned when the model's answer cannot be decoded
func fallbackReport() ReportData {
	return ReportData{
		MarkdownReport:   "No report generated",
		ExecutiveSummary: "No summary available",
		KeyInsights:      []string{},
	}
}

// WriteReport produces the final report from the original query and search
// summaries. A provider failure is a hard error; an unparseable response
// degrades to the fallback report.
func (w *Writer) WriteReport(ctx context.Context, query string, summaries []string) (ReportData, error) {
	model := w.config.LLM.Routing.Write
	prompt := fmt.Sprintf("%s\n\nOriginal query: %s\nSummarized search results: %s",
		writerInstructions, query, strings.Join(summaries, "\n\n"))

	start := time.Now()
	out, inTok, outTok, err := w.llm.GenerateWithTokens(ctx, prompt, model, nil)
	w.telemetry.RecordLLMEvent(ctx, telemetry.LLMEvent{
		Phase:        "write",
		Model:        model,
		InputTokens:  inTok,
		OutputTokens: outTok,
		Duration:     time.Since(start),
		Success:      err == nil,
		Error:        errString(err),
		Cost:         w.llm.CalculateCost(inTok, outTok, model),
	})
	if err != nil {
		return ReportData{}, fmt.Errorf("report writing failed: %w", err)
	}

	report, ok := decodeReport(out)
	if !ok {
		w.logger.Printf("report response unparseable, returning fallback report")
		return fallbackReport(), nil
	}
	return report, nil
}
