// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the select
// with a wall-clock timeout that keeps a broken test from hanging.
// They are the only place tests use real time; everything else runs on
// clock.Fake.
//
// [TempPath] and [WriteFile] place fixture files in a per-test
// directory that is removed when the test completes.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
