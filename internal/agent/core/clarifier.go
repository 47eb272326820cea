package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Kelmain/deep-search/config"
	"github.com/Kelmain/deep-search/internal/agent/telemetry"
)

// Clarifier asks follow-up questions that sharpen a research query.
// It is best-effort: any failure yields no questions, never an error.
type Clarifier struct {
	config    *config.Config
	llm       LLMProvider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewClarifier creates a new clarifier agent
func NewClarifier(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *Clarifier {
	return &Clarifier{
		config:    cfg,
		llm:       llm,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[CLARIFIER] ", log.LstdFlags),
	}
}

const clarifierInstructions = `You are a research assistant. Given a user's research query, ask exactly 3 clarifying questions that would help you research the topic more effectively. The questions should narrow scope, surface intent, or pin down ambiguous terms.

Return ONLY strict JSON in this exact format:
{"questions": ["question 1", "question 2", "question 3"]}`

// Questions generates up to 3 clarifying questions for a query
func (c *Clarifier) Questions(ctx context.Context, query string) []string {
	model := c.config.LLM.Routing.Clarify
	prompt := fmt.Sprintf("%s\n\nQuery: %s", clarifierInstructions, query)

	start := time.Now()
	out, inTok, outTok, err := c.llm.GenerateWithTokens(ctx, prompt, model, nil)
	c.telemetry.RecordLLMEvent(ctx, telemetry.LLMEvent{
		Phase:        "clarify",
		Model:        model,
		InputTokens:  inTok,
		OutputTokens: outTok,
		Duration:     time.Since(start),
		Success:      err == nil,
		Error:        errString(err),
		Cost:         c.llm.CalculateCost(inTok, outTok, model),
	})
	if err != nil {
		c.logger.Printf("clarification failed, continuing without questions: %v", err)
		return nil
	}

	questions, ok := decodeQuestions(out)
	if !ok {
		c.logger.Printf("clarification response unparseable, continuing without questions")
		return nil
	}
	return questions
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
