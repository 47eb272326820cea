package config

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnvOnly(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("SEARCHES", "7")

	cfg := LoadConfig("")

	if cfg.Search.MaxSearches != 7 {
		t.Fatalf("expected SEARCHES override 7, got %d", cfg.Search.MaxSearches)
	}
	p, ok := cfg.LLM.Providers["gemini"]
	if !ok {
		t.Fatalf("expected default gemini provider")
	}
	if p.APIKey != "test-key" {
		t.Fatalf("expected api key from env, got %q", p.APIKey)
	}
	if p.Timeout <= 0 {
		t.Fatalf("expected default provider timeout")
	}
	if _, _, ok := cfg.LLM.ModelFor(cfg.LLM.Routing.Plan); !ok {
		t.Fatalf("routing %q does not resolve", cfg.LLM.Routing.Plan)
	}
	if cfg.Search.Provider != "duckduckgo" {
		t.Fatalf("expected duckduckgo default, got %q", cfg.Search.Provider)
	}
	if cfg.Search.MaxConcurrent != 5 {
		t.Fatalf("expected default concurrency 5, got %d", cfg.Search.MaxConcurrent)
	}
}

func TestLoadConfigDefaultsSearches(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("SEARCHES", "")

	cfg := LoadConfig("")
	if cfg.Search.MaxSearches != 20 {
		t.Fatalf("expected default 20 searches, got %d", cfg.Search.MaxSearches)
	}
}

func TestLoadConfigFailsFastWithoutKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic without GEMINI_API_KEY")
		}
	}()
	LoadConfig("")
}

func TestSearchConfigValidate(t *testing.T) {
	s := SearchConfig{Provider: "brave"}.Normalize()
	if err := s.Validate(); err == nil {
		t.Fatalf("expected error for brave without key")
	}
	s.BraveAPIKey = "k"
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Provider = "bing"
	if err := s.Validate(); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
}

func TestLLMConfigNormalizeKeepsExplicitRouting(t *testing.T) {
	l := LLMConfig{
		Providers: map[string]LLMProvider{
			"gemini": {Type: "gemini", APIKey: "k", Models: map[string]LLMModel{
				"fast": {Name: "fast", Temperature: 0.1},
			}, Timeout: time.Second},
		},
		Routing: LLMRoutingConfig{Fallback: "fast"},
	}.Normalize("")

	if l.Routing.Plan != "fast" || l.Routing.Write != "fast" {
		t.Fatalf("expected fallback routing fill-in, got %+v", l.Routing)
	}
	if err := l.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}
