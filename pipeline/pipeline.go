// Package pipeline composes the snippet store, sandbox runner, result cache
// and renderer into the load, run and render flow served to readers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cpp4you/snippetexec/cache"
	"github.com/cpp4you/snippetexec/catalog"
	"github.com/cpp4you/snippetexec/render"
	"github.com/cpp4you/snippetexec/sandbox"
	"github.com/cpp4you/snippetexec/snippet"
)

// DefaultConcurrency bounds parallel executions in RenderAll.
const DefaultConcurrency = 4

// ErrStoreRequired is returned when Config has no store.
var ErrStoreRequired = errors.New("pipeline: store is required")

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

// Config configures a Pipeline.
type Config struct {
	// Store holds the snippets. Required.
	Store *snippet.Store

	// Runner executes snippets. Optional; without it every snippet renders
	// as static source.
	Runner *sandbox.Runner

	// Cache stores execution results. Optional.
	Cache cache.Cache

	// Catalog answers searches. Default: built from Store.
	Catalog *catalog.Catalog

	// Concurrency bounds parallel executions in RenderAll.
	// Default: 4
	Concurrency int

	// Logger is an optional logger for pipeline events.
	Logger Logger
}

// Options control one render.
type Options struct {
	// Execute runs the snippet and attaches its output. Ignored for snippets
	// that are not runnable or when the pipeline has no runner.
	Execute bool

	// Timeout overrides the runner's default timeout.
	Timeout time.Duration

	// MaxOutputBytes overrides the runner's default output cap.
	MaxOutputBytes int
}

// Pipeline renders snippets, executing them on demand.
//
// Contract:
//   - Concurrency: safe for concurrent use; the store is read-only.
//   - Errors: Render fails only for unknown snippets; execution outcomes are
//     data in the rendered result.
type Pipeline struct {
	store       *snippet.Store
	runner      *sandbox.Runner
	cache       cache.Cache
	catalog     *catalog.Catalog
	concurrency int
	logger      Logger
}

// New creates a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, ErrStoreRequired
	}
	cat := cfg.Catalog
	if cat == nil {
		var err error
		if cat, err = catalog.New(cfg.Store); err != nil {
			return nil, err
		}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Pipeline{
		store:       cfg.Store,
		runner:      cfg.Runner,
		cache:       cfg.Cache,
		catalog:     cat,
		concurrency: concurrency,
		logger:      cfg.Logger,
	}, nil
}

// Store returns the snippet store.
func (p *Pipeline) Store() *snippet.Store {
	return p.store
}

// CanExecute reports whether the pipeline has a runner.
func (p *Pipeline) CanExecute() bool {
	return p.runner != nil
}

// Search finds snippets by keyword. An empty query lists every snippet.
func (p *Pipeline) Search(query string, limit int) ([]catalog.Hit, error) {
	return p.catalog.Search(query, limit)
}

// Languages returns the languages present in the store.
func (p *Pipeline) Languages() ([]snippet.Language, error) {
	return p.catalog.Languages()
}

// Render loads the snippet id and renders it, executing it when asked.
// Unknown ids fail with snippet.ErrNotFound.
func (p *Pipeline) Render(ctx context.Context, id string, opts Options) (render.RenderedSnippet, error) {
	s, err := p.store.Load(id)
	if err != nil {
		return render.RenderedSnippet{}, err
	}
	return p.renderSnippet(ctx, s, opts)
}

// RenderAll renders every snippet in store order. Executions run on at most
// Concurrency workers.
func (p *Pipeline) RenderAll(ctx context.Context, opts Options) ([]render.RenderedSnippet, error) {
	snippets := make([]snippet.Snippet, 0, p.store.Len())
	for s := range p.store.All() {
		snippets = append(snippets, s)
	}

	out := make([]render.RenderedSnippet, len(snippets))
	errs := make([]error, len(snippets))
	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for i, s := range snippets {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			out[i], errs[i] = p.renderSnippet(ctx, s, opts)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) renderSnippet(ctx context.Context, s snippet.Snippet, opts Options) (render.RenderedSnippet, error) {
	if !opts.Execute || !s.Runnable || p.runner == nil {
		return render.Render(s, nil)
	}
	res := p.execute(ctx, s, opts)
	rendered, err := render.Render(s, &res)
	if err != nil {
		return render.RenderedSnippet{}, fmt.Errorf("render %s: %w", s.ID, err)
	}
	return rendered, nil
}

// execute runs s, consulting the cache first.
func (p *Pipeline) execute(ctx context.Context, s snippet.Snippet, opts Options) sandbox.ExecutionResult {
	key := cache.KeyFor(s)
	if p.cache != nil {
		res, ok, err := p.cache.Get(ctx, key)
		switch {
		case err != nil:
			p.warn("cache lookup failed", "snippet", s.ID, "error", err)
		case ok:
			return res
		}
	}

	res := p.runner.Run(ctx, sandbox.Request{
		SnippetID:      s.ID,
		Source:         s.DisplaySource,
		Language:       s.Language,
		Timeout:        opts.Timeout,
		MaxOutputBytes: opts.MaxOutputBytes,
	})

	if p.cache != nil {
		if err := p.cache.Put(ctx, key, res); err != nil {
			p.warn("cache store failed", "snippet", s.ID, "error", err)
		}
	}
	return res
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
