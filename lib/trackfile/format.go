// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackfile

import "errors"

const formatVersion = 1

// magic is the 8-byte file signature.
var magic = [8]byte{'C', 'A', 'P', 'T', 'R', 'K', formatVersion, 0}

// maxHeaderSize bounds the CBOR header a reader accepts.
const maxHeaderSize = 1 << 20

// MaxMetadataSize bounds one record's uncompressed metadata. Writers
// refuse larger frames and readers treat a larger RawLen as corrupt
// before allocating for it.
const MaxMetadataSize = 64 << 20

var (
	// ErrNotTrackFile is returned by Open when the file does not start
	// with the track file signature.
	ErrNotTrackFile = errors.New("trackfile: not a capture track file")

	// ErrCorrupt is returned when a record's contents do not match its
	// digest or cannot be decoded.
	ErrCorrupt = errors.New("trackfile: corrupt record")

	// ErrNotRecording is returned by AppendFrame and EndRecording on a
	// writer with no recording in progress.
	ErrNotRecording = errors.New("trackfile: no recording in progress")

	// ErrAlreadyRecording is returned by StartRecording on a writer
	// that is already recording.
	ErrAlreadyRecording = errors.New("trackfile: recording already in progress")
)

// recordHeader precedes each record's pixel and metadata bytes. It is
// encoded with lib/wire; the layout is fixed by the file format.
type recordHeader struct {
	Time        float64
	Compression Compression
	_           [3]uint8
	PixelsLen   uint32
	StoredLen   uint32
	RawLen      uint32
	Digest      Digest
}
