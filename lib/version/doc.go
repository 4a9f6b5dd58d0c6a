// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version identifies the capturetrack build.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] are stamped with
// -ldflags -X by release builds. Development builds fall back to the
// VCS information the Go toolchain embeds, and to "unknown" when there
// is none (go test, go run outside a checkout).
//
// Every recording header carries [Producer], so a file can be traced
// to the build that wrote it.
package version
