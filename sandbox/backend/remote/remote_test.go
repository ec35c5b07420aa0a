package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cpp4you/snippetexec/sandbox"
	"github.com/cpp4you/snippetexec/snippet"
)

type mockClient struct {
	resp RemoteResponse
	err  error
	wait bool
	got  RemoteRequest
}

func (m *mockClient) Execute(ctx context.Context, req RemoteRequest) (RemoteResponse, error) {
	m.got = req
	if m.wait {
		<-ctx.Done()
		return RemoteResponse{}, errors.New("connection reset")
	}
	return m.resp, m.err
}

func job() sandbox.Job {
	return sandbox.Job{
		ExecutionID: "e1",
		SnippetID:   "sort-array-cpp20",
		Source:      "int main() {}",
		Language:    snippet.LangCpp20,
		Timeout:     2 * time.Second,
	}
}

func streams() (sandbox.Streams, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return sandbox.Streams{Stdout: &stdout, Stderr: &stderr}, &stdout, &stderr
}

func TestBackendKind(t *testing.T) {
	b := New(Config{})
	if b.Kind() != sandbox.BackendRemote {
		t.Errorf("Kind() = %v, want %v", b.Kind(), sandbox.BackendRemote)
	}
}

func TestBackendDefaults(t *testing.T) {
	b := New(Config{})
	if b.timeoutOverhead != DefaultTimeoutOverhead {
		t.Errorf("timeoutOverhead = %v, want %v", b.timeoutOverhead, DefaultTimeoutOverhead)
	}
}

func TestExecute_RequiresClient(t *testing.T) {
	b := New(Config{})
	out, _, _ := streams()
	_, err := b.Execute(context.Background(), job(), out)
	if !errors.Is(err, ErrClientNotConfigured) || !errors.Is(err, sandbox.ErrBackendUnavailable) {
		t.Errorf("Execute() error = %v, want %v", err, ErrClientNotConfigured)
	}
}

func TestExecute_Result(t *testing.T) {
	client := &mockClient{resp: RemoteResponse{Result: &ExecuteResultPayload{Stdout: "1 2 3\n", Stderr: "note\n", ExitCode: 2}}}
	b := New(Config{Client: client})
	out, stdout, stderr := streams()

	exit, err := b.Execute(context.Background(), job(), out)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if exit.Code != 2 {
		t.Errorf("exit code = %d, want 2", exit.Code)
	}
	if stdout.String() != "1 2 3\n" || stderr.String() != "note\n" {
		t.Errorf("stdout = %q, stderr = %q", stdout.String(), stderr.String())
	}

	want := ExecutePayload{
		ExecutionID:   "e1",
		SnippetID:     "sort-array-cpp20",
		Language:      "cpp20",
		Standard:      "c++20",
		Code:          "int main() {}",
		TimeoutMillis: 2000,
	}
	if client.got.Request != want {
		t.Errorf("payload = %+v, want %+v", client.got.Request, want)
	}
}

func TestExecute_RemoteErrors(t *testing.T) {
	tests := []struct {
		name    string
		remote  RemoteError
		wantErr error
	}{
		{"compile", RemoteError{Code: CodeCompileError, Message: "1 error", Stderr: "main.cpp:2: error\n"}, sandbox.ErrCompileFailed},
		{"unavailable", RemoteError{Code: CodeUnavailable, Message: "queue full"}, sandbox.ErrBackendUnavailable},
		{"timeout", RemoteError{Code: CodeTimeout, Message: "wall clock", Stderr: "partial\n"}, context.DeadlineExceeded},
		{"other", RemoteError{Code: "oom", Message: "killed"}, ErrRemoteExecutionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(Config{Client: &mockClient{resp: RemoteResponse{Error: &tt.remote}}})
			out, _, stderr := streams()

			_, err := b.Execute(context.Background(), job(), out)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Execute() error = %v, want %v", err, tt.wantErr)
			}
			if stderr.String() != tt.remote.Stderr {
				t.Errorf("stderr = %q, want %q", stderr.String(), tt.remote.Stderr)
			}
		})
	}
}

func TestExecute_RemoteTimeoutClassifiedAsTimedOut(t *testing.T) {
	b := New(Config{Client: &mockClient{resp: RemoteResponse{Error: &RemoteError{
		Code:    CodeTimeout,
		Message: "wall clock exceeded",
		Stderr:  "partial\n",
	}}}})
	r, err := sandbox.NewRunner(sandbox.Config{Backends: sandbox.NewRegistry(b)})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	res := r.Run(context.Background(), sandbox.Request{
		SnippetID: "fizzbuzz",
		Source:    "int main() { for (;;); }",
		Language:  snippet.LangCpp17,
	})
	if res.Status != sandbox.TimedOut {
		t.Fatalf("Status = %v, want %v", res.Status, sandbox.TimedOut)
	}
	if res.Stderr != "partial\n" {
		t.Errorf("Stderr = %q, want %q", res.Stderr, "partial\n")
	}
}

func TestExecute_MissingResult(t *testing.T) {
	b := New(Config{Client: &mockClient{}})
	out, _, _ := streams()
	_, err := b.Execute(context.Background(), job(), out)
	if !errors.Is(err, ErrRemoteExecutionFailed) {
		t.Errorf("Execute() error = %v, want %v", err, ErrRemoteExecutionFailed)
	}
}

func TestExecute_ContextCancelled(t *testing.T) {
	b := New(Config{Client: &mockClient{wait: true}})
	out, _, _ := streams()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.Execute(ctx, job(), out)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Execute() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestNewHTTPClient_RequiresEndpoint(t *testing.T) {
	_, err := NewHTTPClient(HTTPClientConfig{})
	if !errors.Is(err, sandbox.ErrConfiguration) {
		t.Errorf("NewHTTPClient() error = %v, want %v", err, sandbox.ErrConfiguration)
	}
}

func TestHTTPClient_RoundTrip(t *testing.T) {
	var gotAuth string
	var gotReq RemoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RemoteResponse{Result: &ExecuteResultPayload{Stdout: "hi\n"}})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(HTTPClientConfig{Endpoint: srv.URL, Token: "secret"})
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	b := New(Config{Client: client})
	out, stdout, _ := streams()

	if _, err := b.Execute(context.Background(), job(), out); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if stdout.String() != "hi\n" {
		t.Errorf("stdout = %q, want hi", stdout.String())
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Request.Code != "int main() {}" {
		t.Errorf("server got code %q", gotReq.Request.Code)
	}
	if client.Endpoint() != srv.URL {
		t.Errorf("Endpoint() = %q, want %q", client.Endpoint(), srv.URL)
	}
}

func TestHTTPClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"bare 503", http.StatusServiceUnavailable, "overloaded", sandbox.ErrBackendUnavailable},
		{"structured 422", http.StatusUnprocessableEntity, `{"error":{"code":"compile_error","message":"bad"}}`, sandbox.ErrCompileFailed},
		{"garbage 200", http.StatusOK, "not json", ErrRemoteExecutionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := NewHTTPClient(HTTPClientConfig{Endpoint: srv.URL})
			if err != nil {
				t.Fatalf("NewHTTPClient() error = %v", err)
			}
			out, _, _ := streams()
			_, err = New(Config{Client: client}).Execute(context.Background(), job(), out)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Execute() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
