package sandbox

import (
	"context"
	"io"
	"time"

	"github.com/cpp4you/snippetexec/snippet"
)

// BackendKind identifies a backend implementation.
type BackendKind string

const (
	// BackendProcess compiles and runs sources as local child processes.
	BackendProcess BackendKind = "process"

	// BackendRemote submits sources to a remote sandbox service.
	BackendRemote BackendKind = "remote"

	// BackendScripted replays canned behavior; used by tests and demos.
	BackendScripted BackendKind = "scripted"
)

// Job is what a backend is asked to execute.
type Job struct {
	// ExecutionID identifies the run.
	ExecutionID string

	// SnippetID names the snippet being run.
	SnippetID string

	// Source is the display source to compile and run.
	Source string

	// Language selects the toolchain.
	Language snippet.Language

	// Timeout is the wall-clock budget. The context deadline already enforces
	// it; backends may forward it to remote services.
	Timeout time.Duration
}

// Streams receives program output as it is produced.
//
// Writes never fail. Once the runner has returned, further writes are
// discarded.
type Streams struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Exit is the program's reported termination.
type Exit struct {
	// Code is the process exit code.
	Code int
}

// Backend is the execution collaborator boundary.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: Execute must honor cancellation and release every resource it
//     holds (processes, sessions, temp files) before returning.
//   - Output: program output goes to out as it is produced so partial output
//     survives a timeout.
//   - Errors: return an error only for collaborator faults (unavailable sandbox,
//     failed compile step); a program that exits non-zero is an Exit, not an error.
//     An error wrapping context.DeadlineExceeded reports that the collaborator
//     enforced the timeout itself; the run is classified TimedOut.
type Backend interface {
	// Kind returns the backend kind identifier.
	Kind() BackendKind

	// Execute compiles and runs job, streaming output to out.
	Execute(ctx context.Context, job Job, out Streams) (Exit, error)
}
