package sandbox

import "errors"

// Sentinel errors used by the runner and its backends.
var (
	// ErrConfiguration indicates an invalid or incomplete runner configuration.
	ErrConfiguration = errors.New("sandbox configuration error")

	// ErrNoBackend is returned when no backend serves the requested language.
	ErrNoBackend = errors.New("no sandbox backend for language")

	// ErrMissingSource is returned when a request carries no source text.
	ErrMissingSource = errors.New("missing source")

	// ErrBackendUnavailable indicates the collaborator could not be reached.
	ErrBackendUnavailable = errors.New("sandbox backend unavailable")

	// ErrCompileFailed indicates the compile step failed before the program ran.
	ErrCompileFailed = errors.New("compile step failed")

	// ErrCanceled is reported when the caller cancels a run.
	ErrCanceled = errors.New("execution canceled")
)
