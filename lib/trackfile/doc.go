// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package trackfile stores a recording on disk: the pixels of each
// captured frame next to its metadata snapshot.
//
// A [Writer] is the muxer a recording session drives; [Open] loads a
// file back into a [metatrack.Track] for playback.
//
// # Format
//
// All integers are little-endian.
//
//	magic        8 bytes  "CAPTRK" + format version (1) + reserved (0)
//	headerLen    u32
//	header       headerLen bytes, deterministic CBOR of metatrack.Header
//	records      repeated until end of file
//
// Each record is a fixed 56-byte record header followed by the pixel
// bytes and the stored metadata bytes:
//
//	time         f64      seconds since the start of the recording
//	compression  u8       none (0), lz4 (1), zstd (2)
//	reserved     3 bytes
//	pixelsLen    u32
//	storedLen    u32      metadata bytes as stored (possibly compressed)
//	rawLen       u32      metadata bytes after decompression
//	digest       32 bytes BLAKE3 keyed hash of raw metadata then pixels
//
// The writer never rewrites earlier bytes, so a recording cut short by
// a crash loses at most its last record: the reader stops at a
// truncated trailing record and reports it through Truncated.
package trackfile
