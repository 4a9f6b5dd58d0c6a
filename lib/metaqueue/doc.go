// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metaqueue pairs per-frame metadata with the asynchronous
// pixel readback of the same frame.
//
// The producer enqueues a frame's encoded snapshot when it requests the
// readback, and the readback completion claims it back by sequence
// number. Readbacks complete in request order, so under normal
// operation the claimed entry is always the head. A head older than
// the completing sequence means completions were lost; those entries
// are handed back as stale so their metadata can still be written. A
// head newer than the completing sequence is a desync, and nothing is
// popped.
//
// Enqueue also enforces the target frame rate: at most one frame per
// 1/rate-second bucket of session time is accepted.
package metaqueue
