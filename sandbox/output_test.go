package sandbox

import (
	"strings"
	"sync"
	"testing"
)

func TestCappedOutput_UnderLimit(t *testing.T) {
	o := newCappedOutput(10)
	s := o.streams()
	_, _ = s.Stdout.Write([]byte("abc"))
	_, _ = s.Stderr.Write([]byte("de"))

	stdout, stderr, truncated := o.close()
	if stdout != "abc" || stderr != "de" || truncated {
		t.Errorf("close() = %q, %q, %v", stdout, stderr, truncated)
	}
}

func TestCappedOutput_ExactlyAtLimitIsNotTruncated(t *testing.T) {
	o := newCappedOutput(4)
	s := o.streams()
	_, _ = s.Stdout.Write([]byte("abcd"))

	stdout, _, truncated := o.close()
	if stdout != "abcd" || truncated {
		t.Errorf("close() = %q, %v; want exact fill without truncation", stdout, truncated)
	}
}

func TestCappedOutput_MarkerOnOverflowingStream(t *testing.T) {
	o := newCappedOutput(5)
	s := o.streams()
	_, _ = s.Stdout.Write([]byte("abc"))
	n, err := s.Stderr.Write([]byte("defgh"))
	if n != 5 || err != nil {
		t.Errorf("Write() = %d, %v; want full length and nil", n, err)
	}
	_, _ = s.Stdout.Write([]byte("more"))

	stdout, stderr, truncated := o.close()
	if stdout != "abc" {
		t.Errorf("stdout = %q, want %q", stdout, "abc")
	}
	if stderr != "de"+TruncationMarker {
		t.Errorf("stderr = %q, want %q", stderr, "de"+TruncationMarker)
	}
	if !truncated {
		t.Error("truncated = false")
	}
}

func TestCappedOutput_WritesAfterCloseDiscarded(t *testing.T) {
	o := newCappedOutput(100)
	s := o.streams()
	_, _ = s.Stdout.Write([]byte("before"))
	o.close()
	_, _ = s.Stdout.Write([]byte("after"))

	stdout, _, _ := o.close()
	if stdout != "before" {
		t.Errorf("stdout = %q, want %q", stdout, "before")
	}
}

func TestCappedOutput_ConcurrentWriters(t *testing.T) {
	o := newCappedOutput(1000)
	s := o.streams()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = s.Stdout.Write([]byte("x"))
				_, _ = s.Stderr.Write([]byte("y"))
			}
		}()
	}
	wg.Wait()

	stdout, stderr, truncated := o.close()
	total := len(strings.TrimSuffix(stdout, TruncationMarker)) + len(strings.TrimSuffix(stderr, TruncationMarker))
	if total != 1000 {
		t.Errorf("kept %d bytes, want 1000", total)
	}
	if !truncated {
		t.Error("truncated = false, want true")
	}
}
