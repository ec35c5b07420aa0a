package sandbox

import (
	"bytes"
	"io"
	"sync"
)

// cappedOutput collects stdout and stderr under one shared byte budget.
// It is safe for concurrent writers. After close, writes are discarded.
type cappedOutput struct {
	mu       sync.Mutex
	limit    int
	used     int
	closed   bool
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	overflow *bytes.Buffer
}

func newCappedOutput(limit int) *cappedOutput {
	return &cappedOutput{limit: limit}
}

func (o *cappedOutput) streams() Streams {
	return Streams{
		Stdout: &cappedWriter{out: o, buf: &o.stdout},
		Stderr: &cappedWriter{out: o, buf: &o.stderr},
	}
}

func (o *cappedOutput) write(buf *bytes.Buffer, p []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || len(p) == 0 {
		return
	}
	room := o.limit - o.used
	if len(p) <= room {
		buf.Write(p)
		o.used += len(p)
		return
	}
	if room > 0 {
		buf.Write(p[:room])
		o.used += room
	}
	if o.overflow == nil {
		o.overflow = buf
	}
}

// close freezes the buffers and returns their contents. The truncation marker
// is appended to the stream that overflowed first.
func (o *cappedOutput) close() (stdout, stderr string, truncated bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		if o.overflow != nil {
			o.overflow.WriteString(TruncationMarker)
		}
	}
	return o.stdout.String(), o.stderr.String(), o.overflow != nil
}

type cappedWriter struct {
	out *cappedOutput
	buf *bytes.Buffer
}

// Write always reports success so producers keep draining their pipes.
func (w *cappedWriter) Write(p []byte) (int, error) {
	w.out.write(w.buf, p)
	return len(p), nil
}

var _ io.Writer = (*cappedWriter)(nil)
