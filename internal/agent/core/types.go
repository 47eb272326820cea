package core

import (
	"context"
	"time"
)

// WebSearchItem is a single planned search with the reasoning behind it
type WebSearchItem struct {
	Reason string `json:"reason"`
	Query  string `json:"query"`
}

// WebSearchPlan is the planner's output. An empty plan is valid.
type WebSearchPlan struct {
	Searches []WebSearchItem `json:"searches"`
}

// ReportData is the final synthesized research report
type ReportData struct {
	MarkdownReport   string   `json:"markdown_report"`
	ExecutiveSummary string   `json:"executive_summary"`
	KeyInsights      []string `json:"key_insights"`
}

// EventKind tags entries on a run's event channel
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventReport   EventKind = "report"
	EventError    EventKind = "error"
)

// RunEvent is one entry on a run's event stream. A stream carries zero or
// more progress events followed by exactly one terminal event (report or
// error), after which the channel is closed.
type RunEvent struct {
	Kind    EventKind   `json:"kind"`
	Message string      `json:"message,omitempty"`
	Report  *ReportData `json:"report,omitempty"`
	Err     error       `json:"-"`
}

// RunStatus represents the live status of a research run
type RunStatus struct {
	RunID             string    `json:"run_id"`
	Status            string    `json:"status"`   // pending, planning, searching, writing, completed, failed
	Progress          float64   `json:"progress"` // 0.0 to 1.0
	CurrentStep       string    `json:"current_step,omitempty"`
	CompletedSearches int       `json:"completed_searches"`
	TotalSearches     int       `json:"total_searches"`
	Error             string    `json:"error,omitempty"`
	LastUpdated       time.Time `json:"last_updated"`
	CreatedAt         time.Time `json:"created_at"`
}

// LLMProvider interface defines the contract for LLM providers
type LLMProvider interface {
	// Generate generates text using the LLM
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)

	// GenerateWithTokens generates text and returns token usage
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)

	// GetAvailableModels returns available models
	GetAvailableModels() []string

	// GetModelInfo returns information about a specific model
	GetModelInfo(model string) (ModelInfo, error)

	// CalculateCost calculates the cost for a given number of tokens
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// ModelInfo contains information about an LLM model
type ModelInfo struct {
	Name            string  `json:"name"`
	Provider        string  `json:"provider"`
	MaxTokens       int     `json:"max_tokens"`
	CostPer1KInput  float64 `json:"cost_per_1k_input"`
	CostPer1KOutput float64 `json:"cost_per_1k_output"`
	Description     string  `json:"description"`
}
