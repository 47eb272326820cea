package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research system
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug             bool          `mapstructure:"debug"`
	LogLevel          string        `mapstructure:"log_level"`
	MaxProcessingTime time.Duration `mapstructure:"max_processing_time"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type       string              `mapstructure:"type"` // gemini, openai
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Models     map[string]LLMModel `mapstructure:"models"`
	MaxRetries int                 `mapstructure:"max_retries"`
	Timeout    time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig defines which model to use for each research phase
type LLMRoutingConfig struct {
	Clarify  string `mapstructure:"clarify"`
	Plan     string `mapstructure:"plan"`
	Search   string `mapstructure:"search"`
	Write    string `mapstructure:"write"`
	Fallback string `mapstructure:"fallback"`
}

// SearchConfig controls the web search fan-out
type SearchConfig struct {
	Provider      string `mapstructure:"provider"` // duckduckgo, brave, serper
	MaxSearches   int    `mapstructure:"max_searches"`
	MaxConcurrent int    `mapstructure:"max_concurrent"`
	SnippetsPerQ  int    `mapstructure:"snippets_per_query"`
	BraveAPIKey   string `mapstructure:"brave_api_key"`
	SerperAPIKey  string `mapstructure:"serper_api_key"`
}

// Normalize applies defaults for unset search values.
func (s SearchConfig) Normalize() SearchConfig {
	if strings.TrimSpace(s.Provider) == "" {
		s.Provider = "duckduckgo"
	}
	if s.MaxSearches <= 0 {
		s.MaxSearches = 20
	}
	if s.MaxConcurrent <= 0 {
		s.MaxConcurrent = 5
	}
	if s.SnippetsPerQ <= 0 {
		s.SnippetsPerQ = 5
	}
	return s
}

func (s SearchConfig) Validate() error {
	switch s.Provider {
	case "duckduckgo":
	case "brave":
		if strings.TrimSpace(s.BraveAPIKey) == "" {
			return fmt.Errorf("search.brave_api_key is required when search.provider is brave")
		}
	case "serper":
		if strings.TrimSpace(s.SerperAPIKey) == "" {
			return fmt.Errorf("search.serper_api_key is required when search.provider is serper")
		}
	default:
		return fmt.Errorf("search.provider %q is not supported", s.Provider)
	}
	return nil
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	CostTracking bool `mapstructure:"cost_tracking"`
}

// Normalize fills in the default Gemini provider and routing when the
// config file declares none. GEMINI_API_KEY alone is enough to run.
func (l LLMConfig) Normalize(geminiKey string) LLMConfig {
	if l.Providers == nil {
		l.Providers = map[string]LLMProvider{}
	}
	if _, ok := l.Providers["gemini"]; !ok && geminiKey != "" {
		l.Providers["gemini"] = LLMProvider{
			Type:    "gemini",
			APIKey:  geminiKey,
			Models:  defaultGeminiModels(),
			Timeout: 120 * time.Second,
		}
	} else if p, ok := l.Providers["gemini"]; ok {
		if strings.TrimSpace(p.APIKey) == "" {
			p.APIKey = geminiKey
		}
		if len(p.Models) == 0 {
			p.Models = defaultGeminiModels()
		}
		if p.Timeout <= 0 {
			p.Timeout = 120 * time.Second
		}
		l.Providers["gemini"] = p
	}
	if l.Routing.Fallback == "" {
		l.Routing.Fallback = "gemini-fast"
	}
	if l.Routing.Clarify == "" {
		l.Routing.Clarify = l.Routing.Fallback
	}
	if l.Routing.Plan == "" {
		l.Routing.Plan = l.Routing.Fallback
	}
	if l.Routing.Search == "" {
		l.Routing.Search = l.Routing.Fallback
	}
	if l.Routing.Write == "" {
		l.Routing.Write = l.Routing.Fallback
	}
	return l
}

func (l LLMConfig) Validate() error {
	if len(l.Providers) == 0 {
		return fmt.Errorf("no LLM provider configured: set GEMINI_API_KEY or llm.providers")
	}
	for name, p := range l.Providers {
		if strings.TrimSpace(p.APIKey) == "" {
			return fmt.Errorf("llm.providers.%s.api_key is required", name)
		}
		if len(p.Models) == 0 {
			return fmt.Errorf("llm.providers.%s.models must not be empty", name)
		}
	}
	for _, route := range []string{l.Routing.Clarify, l.Routing.Plan, l.Routing.Search, l.Routing.Write, l.Routing.Fallback} {
		if !l.hasModel(route) {
			return fmt.Errorf("llm.routing references unknown model %q", route)
		}
	}
	return nil
}

func (l LLMConfig) hasModel(key string) bool {
	for _, p := range l.Providers {
		if _, ok := p.Models[key]; ok {
			return true
		}
	}
	return false
}

// ModelFor resolves a routing key to its provider name and model config.
func (l LLMConfig) ModelFor(key string) (string, LLMModel, bool) {
	for name, p := range l.Providers {
		if m, ok := p.Models[key]; ok {
			return name, m, true
		}
	}
	return "", LLMModel{}, false
}

func defaultGeminiModels() map[string]LLMModel {
	return map[string]LLMModel{
		"gemini-fast": {
			Name:            "Gemini 2.5 Flash",
			APIName:         "gemini-2.5-flash",
			MaxTokens:       8192,
			Temperature:     0.3,
			CostPer1K:       0.0003,
			CostPer1KOutput: 0.0025,
		},
		"gemini-pro": {
			Name:            "Gemini 2.5 Pro",
			APIName:         "gemini-2.5-pro",
			MaxTokens:       8192,
			Temperature:     0.3,
			CostPer1K:       0.00125,
			CostPer1KOutput: 0.01,
		},
	}
}

// LoadConfig reads configuration from an optional JSON file plus the
// environment and fails fast on anything invalid.
func LoadConfig(path string) *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.max_processing_time", 10*time.Minute)
	v.SetDefault("general.default_timeout", 2*time.Minute)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("search.provider", "duckduckgo")
	v.SetDefault("search.max_searches", 20)
	v.SetDefault("search.max_concurrent", 5)
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.cost_tracking", true)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("DEEPSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// external contract: these two names are honored without the prefix
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("search.max_searches", "SEARCHES", "DEEPSEARCH_SEARCH_MAX_SEARCHES")
	_ = v.BindEnv("search.brave_api_key", "BRAVE_API_KEY", "DEEPSEARCH_SEARCH_BRAVE_API_KEY")
	_ = v.BindEnv("search.serper_api_key", "SERPER_API_KEY", "DEEPSEARCH_SEARCH_SERPER_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		// a config file is optional unless one was named explicitly
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	config.Search = config.Search.Normalize()
	config.LLM = config.LLM.Normalize(v.GetString("gemini_api_key"))

	if err := config.LLM.Validate(); err != nil {
		panic(err)
	}
	if err := config.Search.Validate(); err != nil {
		panic(err)
	}
	return &config
}
