// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempPath returns a path named name inside a fresh temporary
// directory. The file is not created.
func TempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// WriteFile writes data to name inside a fresh temporary directory and
// returns the path.
func WriteFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := TempPath(t, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
