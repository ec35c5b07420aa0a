package sandbox

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cpp4you/snippetexec/snippet"
)

// Registry maps languages to backends, with an optional fallback.
type Registry struct {
	mu       sync.RWMutex
	byLang   map[snippet.Language]Backend
	fallback Backend
}

// NewRegistry creates a registry. fallback serves every language without a
// dedicated backend; it may be nil.
func NewRegistry(fallback Backend) *Registry {
	return &Registry{
		byLang:   make(map[snippet.Language]Backend),
		fallback: fallback,
	}
}

// Register routes lang to b, replacing any previous route.
func (r *Registry) Register(lang snippet.Language, b Backend) error {
	if b == nil {
		return fmt.Errorf("%w: backend for %s is nil", ErrConfiguration, lang)
	}
	if !lang.IsValid() {
		return fmt.Errorf("%w: invalid language %q", ErrConfiguration, lang)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byLang[lang] = b
	return nil
}

// Resolve returns the backend for lang.
// Returns ErrNoBackend when neither a route nor a fallback exists.
func (r *Registry) Resolve(lang snippet.Language) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.byLang[lang]; ok {
		return b, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoBackend, lang)
}

// Languages returns the languages with a dedicated backend, sorted.
func (r *Registry) Languages() []snippet.Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]snippet.Language, 0, len(r.byLang))
	for lang := range r.byLang {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
