// Package process provides a backend that compiles and runs snippets as local
// child processes.
// Only appropriate for trusted snippets on a developer machine or inside an
// already isolated container.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cpp4you/snippetexec/sandbox"
	"github.com/cpp4you/snippetexec/snippet"
)

// Placeholders expanded in toolchain argument lists.
const (
	PlaceholderSource   = "{src}"
	PlaceholderBinary   = "{bin}"
	PlaceholderDir      = "{dir}"
	PlaceholderStandard = "{std}"
)

// DefaultWaitDelay bounds how long Execute waits for output pipes to drain
// after a killed process.
const DefaultWaitDelay = 50 * time.Millisecond

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

// Toolchain describes how one language is built and run.
type Toolchain struct {
	// Compile is the compile command. Empty means the source runs directly.
	Compile []string `yaml:"compile"`

	// Run is the run command. Required.
	Run []string `yaml:"run"`

	// SourceName is the file name the source is written to.
	// Default: main.cpp
	SourceName string `yaml:"source_name"`
}

// DefaultToolchain compiles with the system C++ compiler at the language's
// standard.
func DefaultToolchain() Toolchain {
	return Toolchain{
		Compile: []string{"c++", "-std=" + PlaceholderStandard, "-O1", "-o", PlaceholderBinary, PlaceholderSource},
		Run:     []string{PlaceholderBinary},
	}
}

// Config configures a process backend.
type Config struct {
	// WorkDir is the parent of per-execution scratch directories.
	// Default: os.TempDir()
	WorkDir string

	// Toolchains maps languages to build commands. Languages without an entry
	// use Default.
	Toolchains map[snippet.Language]Toolchain

	// Default is the toolchain for languages missing from Toolchains.
	// Default: DefaultToolchain()
	Default *Toolchain

	// WaitDelay is passed to exec.Cmd.WaitDelay.
	// Default: 50ms
	WaitDelay time.Duration

	// Logger is an optional logger for backend events.
	Logger Logger
}

// Backend runs snippets as child processes.
type Backend struct {
	workDir    string
	toolchains map[snippet.Language]Toolchain
	fallback   Toolchain
	waitDelay  time.Duration
	logger     Logger
}

// New creates a new process backend with the given configuration.
func New(cfg Config) *Backend {
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}

	fallback := DefaultToolchain()
	if cfg.Default != nil {
		fallback = *cfg.Default
	}

	waitDelay := cfg.WaitDelay
	if waitDelay == 0 {
		waitDelay = DefaultWaitDelay
	}

	toolchains := make(map[snippet.Language]Toolchain, len(cfg.Toolchains))
	for lang, tc := range cfg.Toolchains {
		toolchains[lang] = tc
	}

	return &Backend{
		workDir:    workDir,
		toolchains: toolchains,
		fallback:   fallback,
		waitDelay:  waitDelay,
		logger:     cfg.Logger,
	}
}

// Kind returns the backend kind identifier.
func (b *Backend) Kind() sandbox.BackendKind {
	return sandbox.BackendProcess
}

// Execute writes the source into a scratch directory, compiles it and runs
// the result. The scratch directory is removed before Execute returns.
func (b *Backend) Execute(ctx context.Context, job sandbox.Job, out sandbox.Streams) (sandbox.Exit, error) {
	tc := b.toolchain(job.Language)
	if len(tc.Run) == 0 {
		return sandbox.Exit{}, fmt.Errorf("%w: empty run command for %s", sandbox.ErrConfiguration, job.Language)
	}

	dir, err := os.MkdirTemp(b.workDir, "snippet-")
	if err != nil {
		return sandbox.Exit{}, fmt.Errorf("%w: %v", sandbox.ErrBackendUnavailable, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil && b.logger != nil {
			b.logger.Warn("scratch directory not removed", "dir", dir, "error", err)
		}
	}()

	sourceName := tc.SourceName
	if sourceName == "" {
		sourceName = "main.cpp"
	}
	src := filepath.Join(dir, sourceName)
	if err := os.WriteFile(src, []byte(job.Source), 0o600); err != nil {
		return sandbox.Exit{}, fmt.Errorf("%w: %v", sandbox.ErrBackendUnavailable, err)
	}

	vars := strings.NewReplacer(
		PlaceholderSource, src,
		PlaceholderBinary, filepath.Join(dir, "main"),
		PlaceholderDir, dir,
		PlaceholderStandard, job.Language.Standard(),
	)

	if len(tc.Compile) > 0 {
		if err := b.compile(ctx, dir, expand(vars, tc.Compile), out); err != nil {
			return sandbox.Exit{}, err
		}
	}

	if b.logger != nil {
		b.logger.Info("running snippet", "snippet", job.SnippetID, "execution", job.ExecutionID, "dir", dir)
	}

	cmd := b.command(ctx, dir, expand(vars, tc.Run))
	cmd.Stdout = out.Stdout
	cmd.Stderr = out.Stderr
	err = cmd.Run()
	if ctx.Err() != nil {
		return sandbox.Exit{}, ctx.Err()
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return sandbox.Exit{Code: 0}, nil
	case errors.As(err, &exitErr):
		return sandbox.Exit{Code: exitCode(exitErr.ProcessState)}, nil
	default:
		return sandbox.Exit{}, fmt.Errorf("%w: %v", sandbox.ErrBackendUnavailable, err)
	}
}

// compile runs the compile step. Compiler diagnostics go to stderr only when
// the step fails.
func (b *Backend) compile(ctx context.Context, dir string, args []string, out sandbox.Streams) error {
	var diag bytes.Buffer
	cmd := b.command(ctx, dir, args)
	cmd.Stdout = &diag
	cmd.Stderr = &diag

	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		return nil
	}
	_, _ = out.Stderr.Write(diag.Bytes())

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%w: %s exited with code %d", sandbox.ErrCompileFailed, args[0], exitErr.ExitCode())
	}
	return fmt.Errorf("%w: %v", sandbox.ErrBackendUnavailable, err)
}

func (b *Backend) command(ctx context.Context, dir string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + dir,
		"TMPDIR=" + dir,
		"LANG=C.UTF-8",
	}
	cmd.WaitDelay = b.waitDelay
	killProcessGroup(cmd)
	return cmd
}

func (b *Backend) toolchain(lang snippet.Language) Toolchain {
	if tc, ok := b.toolchains[lang]; ok {
		return tc
	}
	return b.fallback
}

func expand(r *strings.Replacer, args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = r.Replace(arg)
	}
	return out
}

var _ sandbox.Backend = (*Backend)(nil)
