package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cpp4you/snippetexec/cache"
	"github.com/cpp4you/snippetexec/config"
	"github.com/cpp4you/snippetexec/httpapi"
	"github.com/cpp4you/snippetexec/pipeline"
	"github.com/cpp4you/snippetexec/sandbox"
	"github.com/cpp4you/snippetexec/sandbox/backend/process"
	"github.com/cpp4you/snippetexec/sandbox/backend/remote"
	"github.com/cpp4you/snippetexec/snippet"
	"github.com/cpp4you/snippetexec/snippets"
)

var version = "dev"

// app holds the wired service.
type app struct {
	pipeline *pipeline.Pipeline
	mcp      *mcp.Server
	handler  http.Handler
	closers  []func() error
}

// Close releases resources opened by build.
func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// build wires the store, sandbox, cache, pipeline and transports from cfg.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	var fsys fs.FS = snippets.FS
	if cfg.SnippetsDir != "" {
		fsys = os.DirFS(cfg.SnippetsDir)
	}
	store, err := snippet.LoadFS(fsys, snippet.LoadOptions{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("load snippets: %w", err)
	}

	runner, err := buildRunner(cfg, logger)
	if err != nil {
		return nil, err
	}

	resultCache, err := buildCache(ctx, cfg, store, logger, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	p, err := pipeline.New(pipeline.Config{
		Store:       store,
		Runner:      runner,
		Cache:       resultCache,
		Concurrency: cfg.Runner.Concurrency,
		Logger:      logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline = p

	a.mcp = mcp.NewServer(&mcp.Implementation{Name: "snippetd", Version: version}, nil)
	p.RegisterMCP(a.mcp)

	a.handler, err = httpapi.NewRouter(httpapi.Config{Pipeline: p, MCP: a.mcp, Logger: logger})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// buildRunner returns nil when execution is disabled.
func buildRunner(cfg *config.Config, logger *slog.Logger) (*sandbox.Runner, error) {
	var backend sandbox.Backend
	switch cfg.Backend.Kind {
	case config.BackendNone:
		logger.Info("execution disabled; snippets render as static source")
		return nil, nil
	case config.BackendProcess:
		backend = process.New(process.Config{
			WorkDir:    cfg.Backend.Process.WorkDir,
			Toolchains: cfg.Toolchains(),
			Logger:     logger,
		})
	case config.BackendRemote:
		client, err := remote.NewHTTPClient(remote.HTTPClientConfig{
			Endpoint: cfg.Backend.Remote.Endpoint,
			Token:    cfg.Backend.Remote.Token,
		})
		if err != nil {
			return nil, err
		}
		backend = remote.New(remote.Config{
			Client:          client,
			TimeoutOverhead: cfg.Backend.Remote.TimeoutOverhead,
			Logger:          logger,
		})
	default:
		return nil, fmt.Errorf("%w: backend.kind %q", config.ErrConfiguration, cfg.Backend.Kind)
	}

	return sandbox.NewRunner(sandbox.Config{
		Backends:              sandbox.NewRegistry(backend),
		DefaultTimeout:        cfg.Runner.Timeout,
		DefaultMaxOutputBytes: cfg.Runner.MaxOutputBytes,
		CancelGrace:           cfg.Runner.CancelGrace,
		Logger:                logger,
	})
}

// buildCache returns nil when caching is disabled. A SQLite cache is pruned
// of entries for snippets that changed or no longer exist.
func buildCache(ctx context.Context, cfg *config.Config, store *snippet.Store, logger *slog.Logger, a *app) (cache.Cache, error) {
	switch cfg.Cache.Kind {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory:
		return cache.NewMemory(), nil
	case config.CacheSQLite:
		c, err := cache.OpenSQLite(ctx, cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)

		keep := make([]cache.Key, 0, store.Len())
		for s := range store.All() {
			keep = append(keep, cache.KeyFor(s))
		}
		removed, err := c.Prune(ctx, keep)
		if err != nil {
			return nil, err
		}
		logger.Info("result cache opened", "path", cfg.Cache.Path, "pruned", removed)
		return c, nil
	default:
		return nil, fmt.Errorf("%w: cache.kind %q", config.ErrConfiguration, cfg.Cache.Kind)
	}
}
