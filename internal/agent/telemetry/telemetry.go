package telemetry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Kelmain/deep-search/config"
)

// Telemetry provides monitoring and cost tracking for research runs
type Telemetry struct {
	config      config.TelemetryConfig
	logger      *log.Logger
	metrics     *Metrics
	costTracker *CostTracker
	mu          sync.RWMutex
}

// Metrics holds various performance metrics
type Metrics struct {
	// Run metrics
	TotalRuns      int64
	SuccessfulRuns int64
	FailedRuns     int64
	AverageRunTime time.Duration

	// Search metrics
	SearchesPlanned   int64
	SearchesCompleted int64
	SearchesFailed    int64

	// LLM metrics
	LLMRequests   map[string]int64
	LLMTokensUsed map[string]int64
}

// CostTracker tracks costs across models and research phases
type CostTracker struct {
	ModelCosts  map[string]float64 // model -> cost
	PhaseCosts  map[string]float64 // phase -> cost
	TotalCost   float64
	TotalTokens int64
}

// CostSummary is a point-in-time copy of accumulated costs
type CostSummary struct {
	ModelCosts  map[string]float64
	PhaseCosts  map[string]float64
	TotalCost   float64
	TotalTokens int64
}

// RunEvent represents one complete research run
type RunEvent struct {
	ID                string
	Query             string
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
	Success           bool
	Error             string
	SearchesPlanned   int
	SearchesCompleted int
	Cost              float64
	TokensUsed        int64
}

// LLMEvent represents a single model invocation within a phase
type LLMEvent struct {
	Phase        string // clarify, plan, search, write
	Model        string
	InputTokens  int64
	OutputTokens int64
	Duration     time.Duration
	Success      bool
	Error        string
	Cost         float64
}

// SearchEvent represents one executed web search
type SearchEvent struct {
	Query    string
	Duration time.Duration
	Success  bool
	Results  int
}

var (
	promRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepsearch_runs_total",
		Help: "Research runs by outcome",
	}, []string{"status"})
	promRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deepsearch_run_duration_seconds",
		Help:    "End-to-end research run duration",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	promSearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepsearch_searches_total",
		Help: "Executed web searches by outcome",
	}, []string{"status"})
	promLLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepsearch_llm_tokens_total",
		Help: "LLM tokens used by model and direction",
	}, []string{"model", "direction"})
	promLLMCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepsearch_llm_cost_usd_total",
		Help: "Accumulated LLM cost by model",
	}, []string{"model"})
)

// NewTelemetry creates a new telemetry instance
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	return &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		metrics: &Metrics{
			LLMRequests:   make(map[string]int64),
			LLMTokensUsed: make(map[string]int64),
		},
		costTracker: &CostTracker{
			ModelCosts: make(map[string]float64),
			PhaseCosts: make(map[string]float64),
		},
	}
}

// RecordRunEvent records a completed research run
func (t *Telemetry) RecordRunEvent(ctx context.Context, event RunEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.TotalRuns++
	if event.Success {
		t.metrics.SuccessfulRuns++
		promRunsTotal.WithLabelValues("succeeded").Inc()
	} else {
		t.metrics.FailedRuns++
		promRunsTotal.WithLabelValues("failed").Inc()
	}
	promRunDuration.Observe(event.Duration.Seconds())

	if t.metrics.TotalRuns == 1 {
		t.metrics.AverageRunTime = event.Duration
	} else {
		total := t.metrics.AverageRunTime * time.Duration(t.metrics.TotalRuns-1)
		t.metrics.AverageRunTime = (total + event.Duration) / time.Duration(t.metrics.TotalRuns)
	}

	t.metrics.SearchesPlanned += int64(event.SearchesPlanned)

	if t.config.CostTracking {
		t.costTracker.TotalCost += event.Cost
		t.costTracker.TotalTokens += event.TokensUsed
	}

	t.logger.Printf("Run Event: ID=%s, Success=%t, Duration=%v, Searches=%d/%d, Cost=$%.4f, Tokens=%d",
		event.ID, event.Success, event.Duration, event.SearchesCompleted, event.SearchesPlanned, event.Cost, event.TokensUsed)
}

// RecordLLMEvent records a single LLM invocation
func (t *Telemetry) RecordLLMEvent(ctx context.Context, event LLMEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.LLMRequests[event.Model]++
	t.metrics.LLMTokensUsed[event.Model] += event.InputTokens + event.OutputTokens
	promLLMTokens.WithLabelValues(event.Model, "input").Add(float64(event.InputTokens))
	promLLMTokens.WithLabelValues(event.Model, "output").Add(float64(event.OutputTokens))

	if t.config.CostTracking {
		t.costTracker.ModelCosts[event.Model] += event.Cost
		t.costTracker.PhaseCosts[event.Phase] += event.Cost
		promLLMCost.WithLabelValues(event.Model).Add(event.Cost)
	}

	if !event.Success {
		t.logger.Printf("LLM Event: phase=%s model=%s failed: %s", event.Phase, event.Model, event.Error)
	}
}

// RecordSearchEvent records one executed web search
func (t *Telemetry) RecordSearchEvent(ctx context.Context, event SearchEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if event.Success {
		t.metrics.SearchesCompleted++
		promSearchesTotal.WithLabelValues("succeeded").Inc()
	} else {
		t.metrics.SearchesFailed++
		promSearchesTotal.WithLabelValues("failed").Inc()
	}
}

// GetMetrics returns a copy of current metrics
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m := Metrics{
		TotalRuns:         t.metrics.TotalRuns,
		SuccessfulRuns:    t.metrics.SuccessfulRuns,
		FailedRuns:        t.metrics.FailedRuns,
		AverageRunTime:    t.metrics.AverageRunTime,
		SearchesPlanned:   t.metrics.SearchesPlanned,
		SearchesCompleted: t.metrics.SearchesCompleted,
		SearchesFailed:    t.metrics.SearchesFailed,
		LLMRequests:       make(map[string]int64, len(t.metrics.LLMRequests)),
		LLMTokensUsed:     make(map[string]int64, len(t.metrics.LLMTokensUsed)),
	}
	for k, v := range t.metrics.LLMRequests {
		m.LLMRequests[k] = v
	}
	for k, v := range t.metrics.LLMTokensUsed {
		m.LLMTokensUsed[k] = v
	}
	return m
}

// GetCostSummary returns a copy of accumulated cost data
func (t *Telemetry) GetCostSummary() CostSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := CostSummary{
		ModelCosts:  make(map[string]float64, len(t.costTracker.ModelCosts)),
		PhaseCosts:  make(map[string]float64, len(t.costTracker.PhaseCosts)),
		TotalCost:   t.costTracker.TotalCost,
		TotalTokens: t.costTracker.TotalTokens,
	}
	for k, v := range t.costTracker.ModelCosts {
		s.ModelCosts[k] = v
	}
	for k, v := range t.costTracker.PhaseCosts {
		s.PhaseCosts[k] = v
	}
	return s
}

// GetPerformanceReport returns a human readable summary
func (t *Telemetry) GetPerformanceReport() string {
	m := t.GetMetrics()
	c := t.GetCostSummary()
	return fmt.Sprintf("runs=%d (ok=%d failed=%d) avg=%v searches=%d/%d cost=$%.4f tokens=%d",
		m.TotalRuns, m.SuccessfulRuns, m.FailedRuns, m.AverageRunTime,
		m.SearchesCompleted, m.SearchesPlanned, c.TotalCost, c.TotalTokens)
}
