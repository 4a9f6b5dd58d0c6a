// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package playback reads a recorded metadata track back into tracking
// state.
//
// [Player] is the low-level lookup: given a playback time it returns
// the nearest-preceding record, copied into a scratch buffer the
// player owns. A time before the first record is not an error; the
// caller keeps whatever state it had.
//
// [Replayer] stands in for a live sensing backend. It decodes records
// as playback advances, feeds each trackable kind's diffs through a
// [reconcile.Registry], and publishes the resulting changes through
// typed [Observers]. Skipped records are applied in order; seeking
// backwards resets the registries and replays from the first record.
// Bad records are reported through OnError and skipped; replay never
// panics on recorded data.
package playback
