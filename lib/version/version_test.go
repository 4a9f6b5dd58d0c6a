// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime"
	"strings"
	"testing"
)

// stamp sets the ldflags variables for the duration of the test.
func stamp(t *testing.T, commit, dirty string) {
	t.Helper()
	originalCommit, originalDirty := GitCommit, GitDirty
	t.Cleanup(func() { GitCommit, GitDirty = originalCommit, originalDirty })
	GitCommit, GitDirty = commit, dirty
}

func TestProducer(t *testing.T) {
	tests := []struct {
		name   string
		commit string
		dirty  string
		want   string
	}{
		{"clean", "abc1234", "false", "capturetrack/" + Version + "+abc1234"},
		{"dirty", "abc1234", "true", "capturetrack/" + Version + "+abc1234-dirty"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stamp(t, test.commit, test.dirty)
			if got := Producer(); got != test.want {
				t.Errorf("Producer() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	stamp(t, "abc1234", "true")
	info := Info()
	for _, want := range []string{Version, "abc1234-dirty", runtime.Version()} {
		if !strings.Contains(info, want) {
			t.Errorf("Info() = %q, missing %q", info, want)
		}
	}
}

func TestUnstampedBuildStillProducesIdentifier(t *testing.T) {
	stamp(t, "unknown", "false")
	if got := Producer(); !strings.HasPrefix(got, "capturetrack/"+Version+"+") {
		t.Errorf("Producer() = %q", got)
	}
}
