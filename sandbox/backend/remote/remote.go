// Package remote provides a backend that executes snippets on a remote sandbox
// service.
// Generic target for hosted compiler services or job runners.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cpp4you/snippetexec/sandbox"
)

// Errors for remote backend operations.
var (
	// ErrRemoteExecutionFailed is returned when the remote service reports a failure.
	ErrRemoteExecutionFailed = errors.New("remote execution failed")

	// ErrClientNotConfigured is returned when no remote client is configured.
	ErrClientNotConfigured = errors.New("remote client not configured")
)

// Remote error codes with a local meaning.
const (
	CodeCompileError = "compile_error"
	CodeUnavailable  = "unavailable"
	CodeTimeout      = "timeout"
)

// DefaultTimeoutOverhead is added to the job timeout for network latency.
const DefaultTimeoutOverhead = 5 * time.Second

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

// RemoteClient executes remote requests.
//
// Contract:
//   - Concurrency: Implementations must be safe for concurrent use.
//   - Context: Execute must honor cancellation and deadlines.
type RemoteClient interface {
	Execute(ctx context.Context, req RemoteRequest) (RemoteResponse, error)
}

// EndpointProvider optionally exposes the configured endpoint for diagnostics.
type EndpointProvider interface {
	Endpoint() string
}

// Config configures a remote backend.
type Config struct {
	// Client executes remote requests.
	// Required. NewHTTPClient provides the JSON-over-HTTP implementation.
	Client RemoteClient

	// TimeoutOverhead is additional timeout added to account for network latency.
	// It only bounds calls made outside a sandbox.Runner: under a runner the
	// run context expires at the job timeout, before the overhead applies.
	// Default: 5s
	TimeoutOverhead time.Duration

	// Logger is an optional logger for backend events.
	Logger Logger
}

// Backend executes snippets on a remote sandbox service.
type Backend struct {
	client          RemoteClient
	timeoutOverhead time.Duration
	logger          Logger
}

// New creates a new remote backend with the given configuration.
func New(cfg Config) *Backend {
	timeoutOverhead := cfg.TimeoutOverhead
	if timeoutOverhead == 0 {
		timeoutOverhead = DefaultTimeoutOverhead
	}

	return &Backend{
		client:          cfg.Client,
		timeoutOverhead: timeoutOverhead,
		logger:          cfg.Logger,
	}
}

// Kind returns the backend kind identifier.
func (b *Backend) Kind() sandbox.BackendKind {
	return sandbox.BackendRemote
}

// Execute submits the job and copies the returned output into out.
//
// The remote service enforces the job timeout itself and reports expiry with
// CodeTimeout, which maps to context.DeadlineExceeded. The local deadline
// allows TimeoutOverhead on top for the round trip; the runner's own deadline
// is earlier and wins.
func (b *Backend) Execute(ctx context.Context, job sandbox.Job, out sandbox.Streams) (sandbox.Exit, error) {
	if b.client == nil {
		return sandbox.Exit{}, fmt.Errorf("%w: %w", sandbox.ErrBackendUnavailable, ErrClientNotConfigured)
	}

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout+b.timeoutOverhead)
		defer cancel()
	}

	if b.logger != nil {
		b.logger.Info("submitting to remote sandbox",
			"snippet", job.SnippetID,
			"execution", job.ExecutionID,
			"endpoint", b.endpoint())
	}

	response, err := b.client.Execute(ctx, RemoteRequest{Request: buildExecutePayload(job)})
	if err != nil {
		if ctx.Err() != nil {
			return sandbox.Exit{}, ctx.Err()
		}
		return sandbox.Exit{}, err
	}
	if response.Error != nil {
		if response.Error.Stderr != "" {
			_, _ = io.WriteString(out.Stderr, response.Error.Stderr)
		}
		return sandbox.Exit{}, mapRemoteError(*response.Error)
	}
	if response.Result == nil {
		return sandbox.Exit{}, fmt.Errorf("%w: missing result", ErrRemoteExecutionFailed)
	}

	result := *response.Result
	if result.Stdout != "" {
		_, _ = io.WriteString(out.Stdout, result.Stdout)
	}
	if result.Stderr != "" {
		_, _ = io.WriteString(out.Stderr, result.Stderr)
	}
	return sandbox.Exit{Code: result.ExitCode}, nil
}

var _ sandbox.Backend = (*Backend)(nil)

// RemoteRequest is the wire request to a remote sandbox.
type RemoteRequest struct {
	Request ExecutePayload `json:"request"`
}

// ExecutePayload defines the execution request payload.
type ExecutePayload struct {
	ExecutionID   string `json:"execution_id"`
	SnippetID     string `json:"snippet_id,omitempty"`
	Language      string `json:"language"`
	Standard      string `json:"standard,omitempty"`
	Code          string `json:"code"`
	TimeoutMillis int64  `json:"timeout_ms,omitempty"`
}

// RemoteResponse is the wire response from a remote sandbox.
type RemoteResponse struct {
	Result *ExecuteResultPayload `json:"result,omitempty"`
	Error  *RemoteError          `json:"error,omitempty"`
}

// RemoteError describes a remote sandbox error.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Stderr carries compiler diagnostics for compile_error.
	Stderr string `json:"stderr,omitempty"`
}

// ExecuteResultPayload is the remote execution result payload.
type ExecuteResultPayload struct {
	Stdout         string `json:"stdout,omitempty"`
	Stderr         string `json:"stderr,omitempty"`
	ExitCode       int    `json:"exit_code"`
	DurationMillis int64  `json:"duration_ms,omitempty"`
}

func buildExecutePayload(job sandbox.Job) ExecutePayload {
	payload := ExecutePayload{
		ExecutionID: job.ExecutionID,
		SnippetID:   job.SnippetID,
		Language:    string(job.Language),
		Standard:    job.Language.Standard(),
		Code:        job.Source,
	}
	if job.Timeout > 0 {
		payload.TimeoutMillis = job.Timeout.Milliseconds()
	}
	return payload
}

func mapRemoteError(e RemoteError) error {
	switch e.Code {
	case CodeCompileError:
		return fmt.Errorf("%w: %s", sandbox.ErrCompileFailed, e.Message)
	case CodeUnavailable:
		return fmt.Errorf("%w: %s", sandbox.ErrBackendUnavailable, e.Message)
	case CodeTimeout:
		return fmt.Errorf("remote sandbox: %w: %s", context.DeadlineExceeded, e.Message)
	default:
		return fmt.Errorf("%w: %s: %s", ErrRemoteExecutionFailed, e.Code, e.Message)
	}
}

func (b *Backend) endpoint() string {
	if provider, ok := b.client.(EndpointProvider); ok {
		return provider.Endpoint()
	}
	return ""
}
