// Package sandbox runs example source through an external execution
// collaborator under a wall-clock timeout and an output-size cap.
//
// The package never compiles or interprets code itself. A [Backend] (a local
// compile-and-run process, a remote sandbox service, a scripted fake) does the
// work; the [Runner] owns only scheduling concerns:
//
//   - Timeout: the backend runs under a derived context. When it expires the
//     context is cancelled and the runner waits a short grace period for the
//     backend to release its resources before returning [TimedOut]. Output
//     written before the deadline is kept.
//   - Output cap: stdout and stderr share one byte budget. Bytes past the budget
//     are discarded and [TruncationMarker] is appended once. Truncation never
//     changes the status.
//   - Classification: every run ends in exactly one [Status].
//   - No retries: a failed run is reported as is.
//
// Execution outcomes are data. [Runner.Run] never returns an error; collaborator
// faults become [ExecutionError] results with the best available diagnostic in
// Stderr.
package sandbox
