package core

import (
	"context"
	"errors"
	"sync"

	"github.com/Kelmain/deep-search/config"
	"github.com/Kelmain/deep-search/internal/agent/telemetry"
	"github.com/Kelmain/deep-search/tools/websearch/models"
)

// stubLLM routes every call through a single generate func and records prompts
type stubLLM struct {
	mu       sync.Mutex
	generate func(prompt, model string) (string, error)
	prompts  []string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error) {
	out, _, _, err := s.GenerateWithTokens(ctx, prompt, model, options)
	return out, err
}

func (s *stubLLM) GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	out, err := s.generate(prompt, model)
	return out, 10, 20, err
}

func (s *stubLLM) GetAvailableModels() []string { return []string{"test-model"} }

func (s *stubLLM) GetModelInfo(model string) (ModelInfo, error) {
	return ModelInfo{Name: model, Provider: "stub"}, nil
}

func (s *stubLLM) CalculateCost(inputTokens, outputTokens int64, model string) float64 { return 0 }

func (s *stubLLM) recordedPrompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// stubWeb fails Discover for queries listed in fail
type stubWeb struct {
	fail map[string]bool
}

func (s stubWeb) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	if s.fail[q] {
		return nil, errors.New("search provider unavailable")
	}
	return []models.Result{{Title: "result", URL: "https://example.com", Snippet: "snippet about " + q}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			Routing: config.LLMRoutingConfig{
				Clarify:  "test-model",
				Plan:     "test-model",
				Search:   "test-model",
				Write:    "test-model",
				Fallback: "test-model",
			},
		},
		Search: config.SearchConfig{
			MaxSearches:   5,
			MaxConcurrent: 2,
			SnippetsPerQ:  2,
		},
	}
}

func testTelemetry() *telemetry.Telemetry {
	return telemetry.NewTelemetry(config.TelemetryConfig{})
}
