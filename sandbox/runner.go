package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cpp4you/snippetexec/snippet"
)

// Default runner limits.
const (
	DefaultTimeout        = 10 * time.Second
	DefaultMaxOutputBytes = 64 * 1024
	DefaultCancelGrace    = 100 * time.Millisecond
)

// Logger is the interface for logging.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Resolver selects the backend for a language. *Registry implements it.
type Resolver interface {
	Resolve(lang snippet.Language) (Backend, error)
}

// Config configures a Runner.
type Config struct {
	// Backends selects the collaborator per language.
	// Required.
	Backends Resolver

	// DefaultTimeout applies when a request has no timeout.
	// Default: 10s
	DefaultTimeout time.Duration

	// DefaultMaxOutputBytes applies when a request has no output cap.
	// Default: 64 KiB
	DefaultMaxOutputBytes int

	// CancelGrace bounds how long the runner waits, after cancelling a timed
	// out backend, for it to release its resources.
	// Default: 100ms
	CancelGrace time.Duration

	// NewID generates execution IDs. Default: uuid.NewString.
	NewID func() string

	// Logger is an optional logger for execution events.
	Logger Logger
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Backends == nil {
		return fmt.Errorf("%w: missing required fields: Backends", ErrConfiguration)
	}
	if c.DefaultTimeout < 0 || c.DefaultMaxOutputBytes < 0 || c.CancelGrace < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrConfiguration)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.DefaultMaxOutputBytes == 0 {
		c.DefaultMaxOutputBytes = DefaultMaxOutputBytes
	}
	if c.CancelGrace == 0 {
		c.CancelGrace = DefaultCancelGrace
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
}

// Request is one execution request.
type Request struct {
	// SnippetID names the snippet; echoed in the result.
	SnippetID string

	// Source is the display source to run.
	Source string

	// Language selects the backend and toolchain.
	Language snippet.Language

	// Timeout is the wall-clock limit. Zero uses the runner default.
	Timeout time.Duration

	// MaxOutputBytes caps combined stdout and stderr. Zero uses the runner default.
	MaxOutputBytes int
}

// Runner schedules executions on backends.
//
// Contract:
//   - Concurrency: safe for concurrent use; runs are independent.
//   - Context: Run honors caller cancellation and reports it as ExecutionError.
//   - Errors: never returned; every outcome is an ExecutionResult.
type Runner struct {
	cfg Config
}

// NewRunner creates a runner. Returns ErrConfiguration if cfg is invalid.
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Runner{cfg: cfg}, nil
}

type outcome struct {
	exit Exit
	err  error
	// interrupted is set when the context ended before the backend returned.
	interrupted bool
}

// Run executes req on the backend serving its language.
//
// Run blocks until the backend returns or the timeout expires, whichever comes
// first. It does not retry.
func (r *Runner) Run(ctx context.Context, req Request) ExecutionResult {
	if req.Timeout <= 0 {
		req.Timeout = r.cfg.DefaultTimeout
	}
	if req.MaxOutputBytes <= 0 {
		req.MaxOutputBytes = r.cfg.DefaultMaxOutputBytes
	}

	start := time.Now()
	res := ExecutionResult{
		SnippetID:   req.SnippetID,
		ExecutionID: r.cfg.NewID(),
		ExitCode:    -1,
	}

	if strings.TrimSpace(req.Source) == "" {
		return r.finish(res, start, outcome{err: ErrMissingSource})
	}
	backend, err := r.cfg.Backends.Resolve(req.Language)
	if err != nil {
		return r.finish(res, start, outcome{err: err})
	}
	res.Backend = backend.Kind()

	runCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	out := newCappedOutput(req.MaxOutputBytes)
	done := make(chan outcome, 1)
	job := Job{
		ExecutionID: res.ExecutionID,
		SnippetID:   req.SnippetID,
		Source:      req.Source,
		Language:    req.Language,
		Timeout:     req.Timeout,
	}
	go func() {
		exit, err := backend.Execute(runCtx, job, out.streams())
		done <- outcome{exit: exit, err: err}
	}()

	var oc outcome
	select {
	case oc = <-done:
		if oc.err != nil && runCtx.Err() != nil {
			oc.interrupted = true
		}
	case <-runCtx.Done():
		cancel()
		oc = r.awaitRelease(done, res)
	}

	res.Stdout, res.Stderr, res.Truncated = out.close()
	return r.finish(res, start, r.interruptCause(ctx, oc))
}

// awaitRelease gives a cancelled backend CancelGrace to return.
func (r *Runner) awaitRelease(done <-chan outcome, res ExecutionResult) outcome {
	timer := time.NewTimer(r.cfg.CancelGrace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		if r.cfg.Logger != nil {
			r.cfg.Logger.Warn("backend did not release after cancellation",
				"snippet", res.SnippetID,
				"execution", res.ExecutionID,
				"backend", res.Backend,
				"grace", r.cfg.CancelGrace)
		}
	}
	return outcome{interrupted: true}
}

// interruptCause records why an interrupted run stopped.
func (r *Runner) interruptCause(ctx context.Context, oc outcome) outcome {
	if !oc.interrupted {
		return oc
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		oc.err = fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
	} else {
		oc.err = context.DeadlineExceeded
	}
	return oc
}

// finish classifies oc into res and logs the result.
func (r *Runner) finish(res ExecutionResult, start time.Time, oc outcome) ExecutionResult {
	switch {
	case oc.err == nil && oc.exit.Code == 0:
		res.Status = Success
		res.ExitCode = 0
	case oc.err == nil:
		res.Status = NonZeroExit
		res.ExitCode = oc.exit.Code
	case errors.Is(oc.err, context.DeadlineExceeded):
		res.Status = TimedOut
	default:
		res.Status = ExecutionError
		res.Stderr = appendDiagnostic(res.Stderr, oc.err.Error())
	}
	res.DurationMs = time.Since(start).Milliseconds()

	if r.cfg.Logger != nil {
		args := []any{
			"snippet", res.SnippetID,
			"execution", res.ExecutionID,
			"backend", res.Backend,
			"status", res.Status,
			"durationMs", res.DurationMs,
			"truncated", res.Truncated,
		}
		if res.Status == ExecutionError {
			r.cfg.Logger.Error("execution failed", append(args, "error", oc.err)...)
		} else {
			r.cfg.Logger.Info("execution finished", args...)
		}
	}
	return res
}

func appendDiagnostic(stderr, diagnostic string) string {
	switch {
	case stderr == "":
		return diagnostic
	case strings.HasSuffix(stderr, "\n"):
		return stderr + diagnostic
	default:
		return stderr + "\n" + diagnostic
	}
}
