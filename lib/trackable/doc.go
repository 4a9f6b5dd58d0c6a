// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package trackable defines the tracked-entity records carried in a
// capture's metadata track and the diff protocol that moves them.
//
// A trackable is a detected real-world entity (plane, mesh, streetscape
// geometry, point cloud) with a stable 128-bit [Identity]. Each kind has
// one fixed-layout record type shared by the recorder and the replayer,
// so arrays of records travel as contiguous byte ranges through
// lib/wire.
//
// Change sets are expressed as a [DiffSet]: records added, records
// updated, and identities removed since the previous diff for that
// kind. [EncodeDiff] and [DecodeDiff] convert a DiffSet to and from
// three independent byte ranges. An empty DiffSet means "no change";
// whether a kind is present at all is tracked one level up, by the
// snapshot.
//
// [Accumulator] collects sensor callbacks between snapshots and folds
// them into a single DiffSet that respects the protocol invariants: an
// identity appears in at most one list, removals only name identities
// that were added in an earlier diff, and a removed identity is never
// reintroduced.
package trackable
