package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	agentcore "github.com/Kelmain/deep-search/internal/agent/core"
)

var researchTracer trace.Tracer = otel.Tracer("deep-search/internal/server/research")

// Orchestration is the slice of the orchestrator the handlers need
type Orchestration interface {
	GetClarificationQuestions(ctx context.Context, query string) ([]string, error)
	Run(ctx context.Context, query string, questions, answers []string) (<-chan agentcore.RunEvent, string, error)
	GetStatus(runID string) (agentcore.RunStatus, error)
}

// ResearchHandler exposes the research pipeline over HTTP
type ResearchHandler struct {
	Orch   Orchestration
	Logger *log.Logger
}

func (h *ResearchHandler) Register(g *echo.Group) {
	g.POST("/questions", h.questions)
	g.POST("/runs", h.stream)
	g.GET("/runs/:id", h.status)
}

type questionsRequest struct {
	Query string `json:"query"`
}

type runRequest struct {
	Query     string   `json:"query"`
	Questions []string `json:"questions"`
	Answers   []string `json:"answers"`
}

// questions returns up to three clarifying questions for a query
func (h *ResearchHandler) questions(c echo.Context) error {
	ctx, span := researchTracer.Start(c.Request().Context(), "ResearchHandler.questions")
	defer span.End()

	var req questionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	questions, err := h.Orch.GetClarificationQuestions(ctx, req.Query)
	if err != nil {
		if errors.Is(err, agentcore.ErrEmptyQuery) {
			span.SetStatus(codes.Error, "empty query")
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "query is required")
		}
		span.RecordError(err)
		return err
	}
	if questions == nil {
		questions = []string{}
	}
	span.SetAttributes(attribute.Int("questions.count", len(questions)))
	return c.JSON(http.StatusOK, map[string]interface{}{"questions": questions})
}

// stream starts a research run and streams its events over SSE
func (h *ResearchHandler) stream(c echo.Context) error {
	req := c.Request()
	ctx, span := researchTracer.Start(req.Context(), "ResearchHandler.stream")
	defer span.End()

	var body runRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	events, runID, err := h.Orch.Run(ctx, body.Query, body.Questions, body.Answers)
	if err != nil {
		if errors.Is(err, agentcore.ErrEmptyQuery) {
			span.SetStatus(codes.Error, "empty query")
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "query is required")
		}
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.String("run.id", runID))

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Run-ID", runID)
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		span.SetStatus(codes.Error, "streaming unsupported")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	send := func(event string, payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := resp.Write([]byte("event: " + event + "\n")); err != nil {
			return err
		}
		if _, err := resp.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	for ev := range events {
		var err error
		switch ev.Kind {
		case agentcore.EventProgress:
			err = send("progress", map[string]string{"message": ev.Message})
		case agentcore.EventReport:
			err = send("report", ev.Report)
		case agentcore.EventError:
			err = send("error", map[string]string{"error": ev.Err.Error()})
		}
		if err != nil {
			// client went away; the run context unwinds on its own
			h.Logger.Printf("run %s: stream closed: %v", runID, err)
			span.RecordError(err)
			for range events {
			}
			return nil
		}
	}
	span.SetStatus(codes.Ok, "completed")
	return nil
}

// status returns the live status of an in-flight run
func (h *ResearchHandler) status(c echo.Context) error {
	runID := c.Param("id")
	st, err := h.Orch.GetStatus(runID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, st)
}
