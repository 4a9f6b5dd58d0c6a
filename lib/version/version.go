// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Stamped at build time:
//
//	go build -ldflags "-X github.com/bureau-foundation/capturetrack/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty is "true" when the tree had uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"

	// Version is the release version.
	Version = "0.1.0-dev"
)

// commit returns the stamped commit, or the toolchain's VCS revision
// when the build was not stamped.
func commit() (revision string, dirty bool) {
	revision, dirty = GitCommit, GitDirty == "true"
	if revision != "unknown" {
		return revision, dirty
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return revision, dirty
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
			if len(revision) > 12 {
				revision = revision[:12]
			}
		case "vcs.modified":
			dirty = dirty || setting.Value == "true"
		}
	}
	return revision, dirty
}

func dirtySuffix(dirty bool) string {
	if dirty {
		return "-dirty"
	}
	return ""
}

// Info returns the version line printed by the version command:
// version, commit, build time and Go toolchain.
func Info() string {
	revision, dirty := commit()
	return fmt.Sprintf("%s (%s%s, built %s, %s %s/%s)",
		Version, revision, dirtySuffix(dirty), BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Producer returns the identification written into recording headers,
// "capturetrack/<version>+<commit>[-dirty]".
func Producer() string {
	revision, dirty := commit()
	return fmt.Sprintf("capturetrack/%s+%s%s", Version, revision, dirtySuffix(dirty))
}
