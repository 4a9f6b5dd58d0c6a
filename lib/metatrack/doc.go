// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metatrack holds the metadata track of a recording: the file
// [Header] that describes how the track was produced, and the
// time-ordered [Track] of per-frame snapshot records.
//
// A Track is appended to while recording (or while loading a file) and
// is read-only afterwards. Lookups use nearest-preceding semantics: the
// record for time t is the one with the greatest timestamp not after
// t. A time before the first record has no record, which callers treat
// as "hold the previous state" rather than as an error.
package metatrack
