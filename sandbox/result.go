package sandbox

// Status is the classified outcome of one execution.
type Status string

const (
	// Success means the program ran and exited with code zero.
	Success Status = "success"

	// NonZeroExit means the program ran and exited with a non-zero code.
	NonZeroExit Status = "non_zero_exit"

	// TimedOut means the wall-clock timeout expired first.
	TimedOut Status = "timed_out"

	// ExecutionError means the collaborator failed before or while running the
	// program: sandbox unavailable, compile step failed, caller cancellation.
	ExecutionError Status = "execution_error"
)

// IsValid reports whether s is one of the four known statuses.
func (s Status) IsValid() bool {
	switch s {
	case Success, NonZeroExit, TimedOut, ExecutionError:
		return true
	}
	return false
}

// TruncationMarker is appended to the stream that hit the output cap.
const TruncationMarker = "\n[output truncated]\n"

// ExecutionResult is the outcome of one Run call.
type ExecutionResult struct {
	// SnippetID echoes the request.
	SnippetID string `json:"snippetId"`

	// ExecutionID uniquely identifies this run in logs.
	ExecutionID string `json:"executionId"`

	// Stdout is the captured standard output, possibly truncated.
	Stdout string `json:"stdout"`

	// Stderr is the captured standard error, possibly truncated. For
	// ExecutionError it ends with the collaborator's diagnostic.
	Stderr string `json:"stderr"`

	// Status is the classified outcome.
	Status Status `json:"status"`

	// ExitCode is the program's exit code. -1 unless the program exited.
	ExitCode int `json:"exitCode"`

	// Truncated reports whether output was discarded by the cap.
	Truncated bool `json:"truncated,omitempty"`

	// DurationMs is the wall-clock time of the run in milliseconds.
	DurationMs int64 `json:"durationMs"`

	// Backend is the kind of collaborator that served the run.
	Backend BackendKind `json:"backend,omitempty"`
}

// Exited reports whether the program ran to completion.
func (r ExecutionResult) Exited() bool {
	return r.Status == Success || r.Status == NonZeroExit
}
