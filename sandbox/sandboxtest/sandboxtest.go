// Package sandboxtest provides deterministic sandbox backends for tests and
// demos.
package sandboxtest

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/cpp4you/snippetexec/sandbox"
)

// Script is a backend that replays fixed behavior.
//
// The zero value writes nothing and exits zero.
type Script struct {
	// Stdout and Stderr are written before the script exits or hangs.
	Stdout string
	Stderr string

	// ExitCode is reported when the script exits normally.
	ExitCode int

	// Err, when set, is returned instead of an exit.
	Err error

	// Hang blocks after writing output until the context is cancelled.
	Hang bool

	// IgnoreCancel makes Hang block until Release is called, even after the
	// context is cancelled. It models a collaborator that never responds.
	IgnoreCancel bool

	// ChunkSize splits Stdout into writes of at most this many bytes.
	ChunkSize int

	mu       sync.Mutex
	calls    int
	jobs     []sandbox.Job
	released chan struct{}
	once     sync.Once
}

// Kind returns the backend kind identifier.
func (s *Script) Kind() sandbox.BackendKind {
	return sandbox.BackendScripted
}

// Execute replays the script.
func (s *Script) Execute(ctx context.Context, job sandbox.Job, out sandbox.Streams) (sandbox.Exit, error) {
	s.mu.Lock()
	s.calls++
	s.jobs = append(s.jobs, job)
	release := s.releaseChan()
	s.mu.Unlock()

	writeChunks(out.Stdout, s.Stdout, s.ChunkSize)
	if s.Stderr != "" {
		_, _ = io.WriteString(out.Stderr, s.Stderr)
	}

	if s.Hang {
		if s.IgnoreCancel {
			<-release
		} else {
			<-ctx.Done()
		}
		return sandbox.Exit{}, ctx.Err()
	}
	if s.Err != nil {
		return sandbox.Exit{}, s.Err
	}
	return sandbox.Exit{Code: s.ExitCode}, nil
}

// Release unblocks scripts that ignore cancellation.
func (s *Script) Release() {
	s.mu.Lock()
	release := s.releaseChan()
	s.mu.Unlock()
	s.once.Do(func() { close(release) })
}

// Calls returns the number of Execute calls.
func (s *Script) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Jobs returns the jobs received so far.
func (s *Script) Jobs() []sandbox.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sandbox.Job(nil), s.jobs...)
}

func (s *Script) releaseChan() chan struct{} {
	if s.released == nil {
		s.released = make(chan struct{})
	}
	return s.released
}

func writeChunks(w io.Writer, text string, size int) {
	if text == "" {
		return
	}
	if size <= 0 {
		_, _ = io.WriteString(w, text)
		return
	}
	for len(text) > 0 {
		n := min(size, len(text))
		_, _ = io.WriteString(w, text[:n])
		text = text[n:]
	}
}

// Flood returns a script that writes n bytes of stdout and exits zero.
func Flood(n int) *Script {
	return &Script{Stdout: strings.Repeat("x", n), ChunkSize: 512}
}

// Echo returns a backend that writes the job's source to stdout and exits zero.
func Echo() sandbox.Backend {
	return echo{}
}

type echo struct{}

func (echo) Kind() sandbox.BackendKind { return sandbox.BackendScripted }

func (echo) Execute(_ context.Context, job sandbox.Job, out sandbox.Streams) (sandbox.Exit, error) {
	_, _ = io.WriteString(out.Stdout, job.Source)
	return sandbox.Exit{}, nil
}

var (
	_ sandbox.Backend = (*Script)(nil)
	_ sandbox.Backend = echo{}
)
