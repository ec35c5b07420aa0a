package sandbox_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cpp4you/snippetexec/sandbox"
	"github.com/cpp4you/snippetexec/sandbox/sandboxtest"
	"github.com/cpp4you/snippetexec/snippet"
)

type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, level+": "+msg)
}

func (l *mockLogger) Info(msg string, _ ...any)  { l.add("INFO", msg) }
func (l *mockLogger) Warn(msg string, _ ...any)  { l.add("WARN", msg) }
func (l *mockLogger) Error(msg string, _ ...any) { l.add("ERROR", msg) }

func (l *mockLogger) has(prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

func newRunner(t *testing.T, b sandbox.Backend, mutate ...func(*sandbox.Config)) *sandbox.Runner {
	t.Helper()
	cfg := sandbox.Config{Backends: sandbox.NewRegistry(b)}
	for _, m := range mutate {
		m(&cfg)
	}
	r, err := sandbox.NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	return r
}

func request(source string) sandbox.Request {
	return sandbox.Request{SnippetID: "demo", Source: source, Language: snippet.LangCpp20}
}

func TestNewRunner_InvalidConfig(t *testing.T) {
	_, err := sandbox.NewRunner(sandbox.Config{})
	if !errors.Is(err, sandbox.ErrConfiguration) {
		t.Errorf("NewRunner() error = %v, want %v", err, sandbox.ErrConfiguration)
	}

	_, err = sandbox.NewRunner(sandbox.Config{Backends: sandbox.NewRegistry(nil), CancelGrace: -time.Second})
	if !errors.Is(err, sandbox.ErrConfiguration) {
		t.Errorf("NewRunner() with negative grace error = %v, want %v", err, sandbox.ErrConfiguration)
	}
}

func TestRun_Success(t *testing.T) {
	script := &sandboxtest.Script{Stdout: "1 2 3 ", ExitCode: 0}
	r := newRunner(t, script)

	res := r.Run(context.Background(), request("int main() {}"))

	if res.Status != sandbox.Success {
		t.Fatalf("Status = %v, want %v (stderr %q)", res.Status, sandbox.Success, res.Stderr)
	}
	if res.Stdout != "1 2 3 " {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "1 2 3 ")
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if res.SnippetID != "demo" {
		t.Errorf("SnippetID = %q, want demo", res.SnippetID)
	}
	if res.ExecutionID == "" {
		t.Error("ExecutionID is empty")
	}
	if res.Backend != sandbox.BackendScripted {
		t.Errorf("Backend = %q, want %q", res.Backend, sandbox.BackendScripted)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	script := &sandboxtest.Script{Stdout: "partial", Stderr: "boom\n", ExitCode: 3}
	r := newRunner(t, script)

	res := r.Run(context.Background(), request("int main() { return 3; }"))

	if res.Status != sandbox.NonZeroExit {
		t.Errorf("Status = %v, want %v", res.Status, sandbox.NonZeroExit)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.Stderr != "boom\n" {
		t.Errorf("Stderr = %q, want program stderr only", res.Stderr)
	}
}

func TestRun_ExecutionErrorCarriesDiagnostic(t *testing.T) {
	compileErr := fmt.Errorf("%w: main.cpp:3: expected ';'", sandbox.ErrCompileFailed)
	script := &sandboxtest.Script{Stderr: "main.cpp:3:10: error: expected ';'", Err: compileErr}
	r := newRunner(t, script)

	res := r.Run(context.Background(), request("int main() { return 0 }"))

	if res.Status != sandbox.ExecutionError {
		t.Fatalf("Status = %v, want %v", res.Status, sandbox.ExecutionError)
	}
	if !strings.HasPrefix(res.Stderr, "main.cpp:3:10: error: expected ';'\n") {
		t.Errorf("Stderr = %q, want compiler output first", res.Stderr)
	}
	if !strings.Contains(res.Stderr, sandbox.ErrCompileFailed.Error()) {
		t.Errorf("Stderr = %q, want backend error appended", res.Stderr)
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
}

func TestRun_NoBackend(t *testing.T) {
	r, err := sandbox.NewRunner(sandbox.Config{Backends: sandbox.NewRegistry(nil)})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	res := r.Run(context.Background(), request("int main() {}"))
	if res.Status != sandbox.ExecutionError {
		t.Errorf("Status = %v, want %v", res.Status, sandbox.ExecutionError)
	}
	if !strings.Contains(res.Stderr, sandbox.ErrNoBackend.Error()) {
		t.Errorf("Stderr = %q, want %q", res.Stderr, sandbox.ErrNoBackend)
	}
}

func TestRun_MissingSource(t *testing.T) {
	script := &sandboxtest.Script{}
	r := newRunner(t, script)

	res := r.Run(context.Background(), request("  \n"))
	if res.Status != sandbox.ExecutionError {
		t.Errorf("Status = %v, want %v", res.Status, sandbox.ExecutionError)
	}
	if script.Calls() != 0 {
		t.Errorf("backend called %d times for empty source", script.Calls())
	}
}

func TestRun_TimeoutAgainstCooperativeBackend(t *testing.T) {
	script := &sandboxtest.Script{Stdout: "started\n", Hang: true}
	r := newRunner(t, script)

	req := request("while(true);")
	req.Timeout = 50 * time.Millisecond

	start := time.Now()
	res := r.Run(context.Background(), req)
	elapsed := time.Since(start)

	if res.Status != sandbox.TimedOut {
		t.Fatalf("Status = %v, want %v", res.Status, sandbox.TimedOut)
	}
	if elapsed > 50*time.Millisecond+250*time.Millisecond {
		t.Errorf("Run took %v, want about 50ms", elapsed)
	}
	if res.Stdout != "started\n" {
		t.Errorf("Stdout = %q, want partial output preserved", res.Stdout)
	}
}

func TestRun_TimeoutReportedByBackend(t *testing.T) {
	script := &sandboxtest.Script{
		Stdout: "partial\n",
		Err:    fmt.Errorf("remote sandbox: %w", context.DeadlineExceeded),
	}
	r := newRunner(t, script)

	res := r.Run(context.Background(), request("int main() {}"))
	if res.Status != sandbox.TimedOut {
		t.Fatalf("Status = %v, want %v", res.Status, sandbox.TimedOut)
	}
	if res.Stdout != "partial\n" {
		t.Errorf("Stdout = %q, want partial output preserved", res.Stdout)
	}
	if res.Stderr != "" {
		t.Errorf("Stderr = %q, want no diagnostic for a timeout", res.Stderr)
	}
}

func TestRun_TimeoutAgainstUnresponsiveBackend(t *testing.T) {
	script := &sandboxtest.Script{Hang: true, IgnoreCancel: true}
	t.Cleanup(script.Release)
	logger := &mockLogger{}
	r := newRunner(t, script, func(c *sandbox.Config) {
		c.CancelGrace = 20 * time.Millisecond
		c.Logger = logger
	})

	req := request("for(;;);")
	req.Timeout = 50 * time.Millisecond

	start := time.Now()
	res := r.Run(context.Background(), req)
	elapsed := time.Since(start)

	if res.Status != sandbox.TimedOut {
		t.Fatalf("Status = %v, want %v", res.Status, sandbox.TimedOut)
	}
	if elapsed > 50*time.Millisecond+20*time.Millisecond+250*time.Millisecond {
		t.Errorf("Run took %v, want bounded by timeout plus grace", elapsed)
	}
	if !logger.has("WARN: backend did not release") {
		t.Errorf("expected release warning, got %v", logger.messages)
	}
}

func TestRun_CallerCancellation(t *testing.T) {
	script := &sandboxtest.Script{Hang: true}
	r := newRunner(t, script)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	req := request("for(;;);")
	req.Timeout = 5 * time.Second
	res := r.Run(ctx, req)

	if res.Status != sandbox.ExecutionError {
		t.Fatalf("Status = %v, want %v", res.Status, sandbox.ExecutionError)
	}
	if !strings.Contains(res.Stderr, sandbox.ErrCanceled.Error()) {
		t.Errorf("Stderr = %q, want cancellation diagnostic", res.Stderr)
	}
}

func TestRun_OutputCap(t *testing.T) {
	script := sandboxtest.Flood(10_000)
	r := newRunner(t, script)

	req := request("spam();")
	req.MaxOutputBytes = 100
	res := r.Run(context.Background(), req)

	if res.Status != sandbox.Success {
		t.Errorf("Status = %v, want %v; truncation must not change status", res.Status, sandbox.Success)
	}
	if len(res.Stdout) > 100+len(sandbox.TruncationMarker) {
		t.Errorf("len(Stdout) = %d, want <= %d", len(res.Stdout), 100+len(sandbox.TruncationMarker))
	}
	if !strings.HasSuffix(res.Stdout, sandbox.TruncationMarker) {
		t.Errorf("Stdout does not end with truncation marker: %q", res.Stdout)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
}

func TestRun_OutputCapIsCombined(t *testing.T) {
	script := &sandboxtest.Script{Stderr: strings.Repeat("e", 80), Stdout: strings.Repeat("o", 80), ExitCode: 1}
	r := newRunner(t, script)

	req := request("spam();")
	req.MaxOutputBytes = 100
	res := r.Run(context.Background(), req)

	stdout := strings.TrimSuffix(res.Stdout, sandbox.TruncationMarker)
	stderr := strings.TrimSuffix(res.Stderr, sandbox.TruncationMarker)
	if len(stdout)+len(stderr) != 100 {
		t.Errorf("combined output = %d bytes, want 100", len(stdout)+len(stderr))
	}
	if res.Status != sandbox.NonZeroExit {
		t.Errorf("Status = %v, want %v", res.Status, sandbox.NonZeroExit)
	}
}

func TestRun_NeverRetries(t *testing.T) {
	script := &sandboxtest.Script{Err: sandbox.ErrBackendUnavailable}
	r := newRunner(t, script)

	res := r.Run(context.Background(), request("int main() {}"))
	if res.Status != sandbox.ExecutionError {
		t.Errorf("Status = %v, want %v", res.Status, sandbox.ExecutionError)
	}
	if script.Calls() != 1 {
		t.Errorf("backend called %d times, want exactly 1", script.Calls())
	}
}

func TestRun_AppliesDefaults(t *testing.T) {
	script := &sandboxtest.Script{}
	r := newRunner(t, script, func(c *sandbox.Config) {
		c.DefaultTimeout = 3 * time.Second
		c.NewID = func() string { return "fixed-id" }
	})

	res := r.Run(context.Background(), request("int main() {}"))
	if res.ExecutionID != "fixed-id" {
		t.Errorf("ExecutionID = %q, want fixed-id", res.ExecutionID)
	}
	jobs := script.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs))
	}
	if jobs[0].Timeout != 3*time.Second {
		t.Errorf("job Timeout = %v, want 3s", jobs[0].Timeout)
	}
	if jobs[0].ExecutionID != "fixed-id" || jobs[0].Source != "int main() {}" {
		t.Errorf("job = %+v", jobs[0])
	}
}

func TestRun_ConcurrentRunsAreIndependent(t *testing.T) {
	r := newRunner(t, sandboxtest.Echo())

	var wg sync.WaitGroup
	results := make([]sandbox.ExecutionResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := request(fmt.Sprintf("source-%d", i))
			req.SnippetID = fmt.Sprintf("s%d", i)
			results[i] = r.Run(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if res.Stdout != fmt.Sprintf("source-%d", i) || res.SnippetID != fmt.Sprintf("s%d", i) {
			t.Errorf("result %d = %+v", i, res)
		}
	}
}

func TestRun_LogsOutcome(t *testing.T) {
	logger := &mockLogger{}
	r := newRunner(t, &sandboxtest.Script{Err: sandbox.ErrBackendUnavailable}, func(c *sandbox.Config) {
		c.Logger = logger
	})

	r.Run(context.Background(), request("x"))
	if !logger.has("ERROR: execution failed") {
		t.Errorf("expected error log, got %v", logger.messages)
	}
}

func TestStatus_IsValid(t *testing.T) {
	for _, s := range []sandbox.Status{sandbox.Success, sandbox.NonZeroExit, sandbox.TimedOut, sandbox.ExecutionError} {
		if !s.IsValid() {
			t.Errorf("%q.IsValid() = false", s)
		}
	}
	if sandbox.Status("done").IsValid() {
		t.Error(`Status("done").IsValid() = true`)
	}
}
