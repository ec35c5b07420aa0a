package snippet

import (
	"fmt"
	"iter"
)

// Store is a read-only registry of snippets.
//
// Contract:
//   - Concurrency: safe for concurrent reads; there are no writers after construction.
//   - Ownership: returned snippets are copies; mutating them does not affect the store.
type Store struct {
	order []string
	byID  map[string]Snippet
}

// NewStore builds a store from snippets, keeping their order.
// It fails on invalid or duplicate IDs.
func NewStore(snippets ...Snippet) (*Store, error) {
	s := &Store{
		order: make([]string, 0, len(snippets)),
		byID:  make(map[string]Snippet, len(snippets)),
	}
	for _, sn := range snippets {
		if err := ValidateID(sn.ID); err != nil {
			return nil, err
		}
		if _, exists := s.byID[sn.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, sn.ID)
		}
		s.byID[sn.ID] = sn.clone()
		s.order = append(s.order, sn.ID)
	}
	return s, nil
}

// Load returns the snippet with the given ID.
// Returns ErrNotFound if no such snippet exists.
func (s *Store) Load(id string) (Snippet, error) {
	sn, ok := s.byID[id]
	if !ok {
		return Snippet{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sn.clone(), nil
}

// All yields every snippet in registration order.
// The sequence is finite and may be ranged over any number of times.
func (s *Store) All() iter.Seq[Snippet] {
	return func(yield func(Snippet) bool) {
		for _, id := range s.order {
			if !yield(s.byID[id].clone()) {
				return
			}
		}
	}
}

// IDs returns snippet IDs in registration order.
func (s *Store) IDs() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of snippets.
func (s *Store) Len() int {
	return len(s.order)
}
