// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package recording drives a capture session: once per rendered frame
// it assembles a metadata snapshot, queues it, and requests the frame's
// pixels; when the pixels arrive it pairs them with the queued
// metadata and hands both to the muxer.
//
// The render loop calls [Session.Update] from one goroutine. Readback
// completions arrive on any goroutine and are serialized through the
// [metaqueue.Queue]. Trackable diffs are committed only after the
// snapshot carrying them has been queued and its readback requested,
// so a rejected or failed frame leaves the diffs pending for the next
// one and no change is lost.
//
// [Session.Stop] waits for every outstanding readback with no timeout.
// A readback implementation that never completes hangs Stop.
package recording
