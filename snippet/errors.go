package snippet

import "errors"

// Errors returned by the store and loader.
var (
	// ErrNotFound is returned when no snippet has the requested ID.
	ErrNotFound = errors.New("snippet not found")

	// ErrInvalidID is returned when a snippet ID is empty or malformed.
	ErrInvalidID = errors.New("invalid snippet id")

	// ErrDuplicateID is returned when two snippets share an ID.
	ErrDuplicateID = errors.New("duplicate snippet id")

	// ErrInvalidLanguage is returned for an unknown language tag.
	ErrInvalidLanguage = errors.New("invalid snippet language")
)
