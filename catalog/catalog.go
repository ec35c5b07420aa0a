// Package catalog indexes snippets for keyword search.
//
// Each snippet is registered as a tool record in a tooldiscovery index, with
// the language as namespace and the snippet ID as name, so BM25 ranking from
// the discovery stack applies unchanged.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/search"
	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cpp4you/snippetexec/snippet"
)

// DefaultLimit caps search results when the caller passes no limit.
const DefaultLimit = 10

// ErrIndex wraps failures reported by the discovery index.
var ErrIndex = errors.New("catalog index error")

// Hit is one search result.
type Hit struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Language snippet.Language `json:"language"`
	Tags     []string         `json:"tags,omitempty"`
}

// Catalog searches a snippet store.
//
// Contract:
//   - Concurrency: safe for concurrent use once built.
//   - Errors: Search wraps index failures with ErrIndex.
type Catalog struct {
	idx   index.Index
	store *snippet.Store
}

// New indexes every snippet in store.
func New(store *snippet.Store) (*Catalog, error) {
	idx := index.NewInMemoryIndex(index.IndexOptions{
		Searcher: search.NewBM25Searcher(search.BM25Config{}),
	})
	for s := range store.All() {
		if err := idx.RegisterTool(toolFor(s), model.NewLocalBackend("snippet")); err != nil {
			return nil, fmt.Errorf("%w: register %s: %v", ErrIndex, s.ID, err)
		}
	}
	return &Catalog{idx: idx, store: store}, nil
}

// toolFor describes s as a discovery record.
func toolFor(s snippet.Snippet) model.Tool {
	return model.Tool{
		Tool: mcp.Tool{
			Name:        s.ID,
			Title:       s.Title,
			Description: s.Title + "\n" + s.DisplaySource,
			InputSchema: map[string]any{"type": "object"},
		},
		Namespace: string(s.Language),
		Tags:      model.NormalizeTags(append([]string{string(s.Language)}, s.Tags...)),
	}
}

// Search returns snippets matching query, best match first. An empty query
// lists every snippet in store order.
func (c *Catalog) Search(query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	if strings.TrimSpace(query) == "" {
		hits := make([]Hit, 0, min(limit, c.store.Len()))
		for s := range c.store.All() {
			if len(hits) == limit {
				break
			}
			hits = append(hits, hitFor(s))
		}
		return hits, nil
	}

	summaries, err := c.idx.Search(query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndex, err)
	}
	hits := make([]Hit, 0, len(summaries))
	for _, sum := range summaries {
		s, err := c.store.Load(sum.Name)
		if err != nil {
			// Index and store are built together; a miss means a stale record.
			continue
		}
		hits = append(hits, hitFor(s))
	}
	return hits, nil
}

// Languages returns the languages that have at least one snippet.
func (c *Catalog) Languages() ([]snippet.Language, error) {
	namespaces, err := c.idx.ListNamespaces()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndex, err)
	}
	out := make([]snippet.Language, 0, len(namespaces))
	for _, ns := range namespaces {
		out = append(out, snippet.Language(ns))
	}
	return out, nil
}

func hitFor(s snippet.Snippet) Hit {
	return Hit{ID: s.ID, Title: s.Title, Language: s.Language, Tags: s.Tags}
}
