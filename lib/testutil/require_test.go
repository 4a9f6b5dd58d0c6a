// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"
)

type fatalRecorder struct {
	message string
}

func (r *fatalRecorder) Helper() {}

func (r *fatalRecorder) Fatalf(format string, args ...any) {
	r.message = fmt.Sprintf(format, args...)
	// Stop the helper the way testing.T.Fatalf would.
	panic(r)
}

func expectFatal(t *testing.T, f func(*fatalRecorder)) string {
	t.Helper()
	recorder := &fatalRecorder{}
	func() {
		defer func() {
			if r := recover(); r != nil && r != recorder {
				panic(r)
			}
		}()
		f(recorder)
	}()
	return recorder.message
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 42
	if got := RequireReceive(t, ch, time.Second, "value"); got != 42 {
		t.Errorf("RequireReceive = %d, want 42", got)
	}

	message := expectFatal(t, func(r *fatalRecorder) {
		RequireReceive(r, make(chan int), time.Millisecond, "waiting for %s", "nothing")
	})
	if message == "" {
		t.Fatal("RequireReceive on an idle channel did not fail")
	}

	closed := make(chan int)
	close(closed)
	if expectFatal(t, func(r *fatalRecorder) { RequireReceive(r, closed, time.Second) }) == "" {
		t.Error("RequireReceive on a closed channel did not fail")
	}
}

func TestRequireClosed(t *testing.T) {
	done := make(chan struct{})
	close(done)
	RequireClosed(t, done, time.Second, "closed channel")

	if expectFatal(t, func(r *fatalRecorder) { RequireClosed(r, make(chan struct{}), time.Millisecond) }) == "" {
		t.Error("RequireClosed on an open channel did not fail")
	}
}

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, "fixture.bin", []byte{1, 2, 3})
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != 3 {
		t.Errorf("read %d bytes, want 3", len(data))
	}
}
