package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/Kelmain/deep-search/config"
	agentcore "github.com/Kelmain/deep-search/internal/agent/core"
	agenttele "github.com/Kelmain/deep-search/internal/agent/telemetry"
	"github.com/Kelmain/deep-search/tools/websearch"
)

// Run wires the research API and blocks serving it.
func Run(cfg *appconfig.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Shared dependencies (top-level DI)
	tele := agenttele.NewTelemetry(cfg.Telemetry)
	llmProvider, err := agentcore.NewLLMProvider(cfg.LLM)
	if err != nil {
		return err
	}
	web, err := newWebSearcher(cfg.Search)
	if err != nil {
		return err
	}
	orchLogger := log.New(log.Writer(), "[ORCHESTRATOR] ", log.LstdFlags)
	orch := agentcore.NewOrchestrator(cfg, orchLogger, tele, llmProvider, web)

	api := e.Group("/api")
	rh := &ResearchHandler{Orch: orch, Logger: log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags)}
	rh.Register(api.Group("/research"))

	return e.Start(cfg.Server.Address)
}

func newWebSearcher(cfg appconfig.SearchConfig) (websearch.WebSearcher, error) {
	switch cfg.Provider {
	case "brave":
		return websearch.NewWebSearcher(websearch.BraveProvider, cfg.BraveAPIKey)
	case "serper":
		return websearch.NewWebSearcher(websearch.SerperProvider, cfg.SerperAPIKey)
	default:
		return websearch.NewWebSearcher(websearch.DuckDuckGoProvider, "")
	}
}
