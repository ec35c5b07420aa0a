// Package httpapi serves rendered snippets over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cpp4you/snippetexec/pipeline"
	"github.com/cpp4you/snippetexec/render"
	"github.com/cpp4you/snippetexec/snippet"
)

// ErrPipelineRequired is returned when Config has no pipeline.
var ErrPipelineRequired = errors.New("httpapi: pipeline is required")

// Logger is the interface for logging.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config configures the HTTP surface.
type Config struct {
	// Pipeline renders snippets. Required.
	Pipeline *pipeline.Pipeline

	// MCP, when set, is served over streamable HTTP at /mcp.
	MCP *mcp.Server

	// Logger is an optional request logger.
	Logger Logger
}

type api struct {
	p      *pipeline.Pipeline
	logger Logger
}

// NewRouter returns the HTTP handler.
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.Pipeline == nil {
		return nil, ErrPipelineRequired
	}
	a := &api{p: cfg.Pipeline, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.logRequests)

	r.Get("/healthz", a.health)
	r.Get("/languages", a.languages)
	r.Route("/snippets", func(r chi.Router) {
		r.Get("/", a.list)
		r.Get("/{id}", a.get)
		r.Get("/{id}/html", a.html)
	})

	if cfg.MCP != nil {
		srv := cfg.MCP
		r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil))
	}
	return r, nil
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"snippets":  a.p.Store().Len(),
		"execution": a.p.CanExecute(),
	})
}

func (a *api) languages(w http.ResponseWriter, _ *http.Request) {
	langs, err := a.p.Languages()
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, langs)
}

func (a *api) list(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if limit == 0 {
		limit = a.p.Store().Len()
	}
	hits, err := a.p.Search(r.URL.Query().Get("q"), limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (a *api) get(w http.ResponseWriter, r *http.Request) {
	rendered, ok := a.render(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rendered)
}

func (a *api) html(w http.ResponseWriter, r *http.Request) {
	rendered, ok := a.render(w, r)
	if !ok {
		return
	}
	fragment, err := render.HTML(rendered)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(fragment))
}

// render handles the shared part of the snippet endpoints. It writes the
// error response itself and reports whether the caller should continue.
func (a *api) render(w http.ResponseWriter, r *http.Request) (render.RenderedSnippet, bool) {
	run, err := boolParam(r, "run")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return render.RenderedSnippet{}, false
	}
	rendered, err := a.p.Render(r.Context(), chi.URLParam(r, "id"), pipeline.Options{Execute: run})
	if err != nil {
		a.writeError(w, err)
		return render.RenderedSnippet{}, false
	}
	return rendered, true
}

type errorBody struct {
	Error string `json:"error"`
}

func (a *api) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, snippet.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}
	if a.logger != nil {
		a.logger.Error("request failed", "error", err)
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New(name + " must be a boolean")
	}
	return b, nil
}

func (a *api) logRequests(next http.Handler) http.Handler {
	if a.logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"durationMs", time.Since(start).Milliseconds(),
			"requestId", middleware.GetReqID(r.Context()))
	})
}
