// Package cache stores execution results keyed on snippet identity and the
// exact source that ran.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/cpp4you/snippetexec/sandbox"
	"github.com/cpp4you/snippetexec/snippet"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache closed")

// Key identifies one cacheable execution.
type Key struct {
	SnippetID  string
	SourceHash string
}

// KeyFor returns the key for running s's display source.
func KeyFor(s snippet.Snippet) Key {
	sum := sha256.Sum256([]byte(s.DisplaySource))
	return Key{SnippetID: s.ID, SourceHash: hex.EncodeToString(sum[:])}
}

// Cacheable reports whether res describes the program rather than the
// environment. Timeouts and execution errors are never cached.
func Cacheable(res sandbox.ExecutionResult) bool {
	return res.Status == sandbox.Success || res.Status == sandbox.NonZeroExit
}

// Cache stores execution results.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Put silently ignores results that are not Cacheable.
//   - Get returns ok == false on a miss; err is reserved for storage faults.
type Cache interface {
	Get(ctx context.Context, key Key) (sandbox.ExecutionResult, bool, error)
	Put(ctx context.Context, key Key, res sandbox.ExecutionResult) error
}
