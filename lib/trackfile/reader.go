// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/bureau-foundation/capturetrack/lib/codec"
	"github.com/bureau-foundation/capturetrack/lib/metatrack"
	"github.com/bureau-foundation/capturetrack/lib/wire"
)

// RecordInfo describes how one record is stored.
type RecordInfo struct {
	Time        float64
	Compression Compression
	PixelsLen   int
	StoredLen   int
	RawLen      int
	Digest      Digest
}

// Reader is a loaded recording. The whole file is read into memory by
// Open; metadata is decompressed into the Track up front, pixels are
// sliced from the file contents on demand.
type Reader struct {
	path      string
	header    metatrack.Header
	rawHeader []byte
	track     *metatrack.Track
	records   []loadedRecord
	truncated bool
}

type loadedRecord struct {
	info   RecordInfo
	pixels []byte
}

// Open loads the recording at path. A truncated trailing record is
// dropped and reported by Truncated; any other damage is an error.
// Digests are not checked; call Verify for that.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	reader, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	reader.path = path
	return reader, nil
}

func parse(data []byte) (*Reader, error) {
	input := wire.NewReader(data)
	signature, err := input.Next(len(magic))
	if err != nil || !bytes.Equal(signature[:6], magic[:6]) {
		return nil, ErrNotTrackFile
	}
	if signature[6] != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", metatrack.ErrIncompatible, signature[6])
	}
	headerLen, err := input.Uint32()
	if err != nil {
		return nil, fmt.Errorf("reading header length: %w", err)
	}
	if headerLen > maxHeaderSize {
		return nil, fmt.Errorf("%w: header length %d exceeds %d", ErrCorrupt, headerLen, maxHeaderSize)
	}
	rawHeader, err := input.Next(int(headerLen))
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	reader := &Reader{
		rawHeader: rawHeader,
		track:     &metatrack.Track{},
	}
	if err := codec.Unmarshal(rawHeader, &reader.header); err != nil {
		return nil, fmt.Errorf("%w: decoding header: %v", ErrCorrupt, err)
	}

	for input.Remaining() > 0 {
		record, metadata, err := readRecord(input)
		if errors.Is(err, wire.ErrSizeMismatch) {
			reader.truncated = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(reader.records), err)
		}
		if err := reader.track.Append(record.info.Time, metadata); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorrupt, len(reader.records), err)
		}
		reader.records = append(reader.records, record)
	}
	return reader, nil
}

// readRecord consumes one record. A short read returns an error
// wrapping wire.ErrSizeMismatch and consumes nothing useful.
func readRecord(input *wire.Reader) (loadedRecord, []byte, error) {
	var header recordHeader
	if err := wire.ReadValue(input, &header); err != nil {
		return loadedRecord{}, nil, err
	}
	pixels, err := input.Next(int(header.PixelsLen))
	if err != nil {
		return loadedRecord{}, nil, err
	}
	stored, err := input.Next(int(header.StoredLen))
	if err != nil {
		return loadedRecord{}, nil, err
	}
	metadata, err := decompress(stored, header.Compression, int(header.RawLen))
	if err != nil {
		return loadedRecord{}, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return loadedRecord{
		info: RecordInfo{
			Time:        header.Time,
			Compression: header.Compression,
			PixelsLen:   int(header.PixelsLen),
			StoredLen:   int(header.StoredLen),
			RawLen:      int(header.RawLen),
			Digest:      header.Digest,
		},
		pixels: pixels,
	}, metadata, nil
}

// Path returns the path the recording was loaded from.
func (r *Reader) Path() string { return r.path }

// Header returns the recording header.
func (r *Reader) Header() metatrack.Header { return r.header }

// RawHeader returns the CBOR bytes of the header as stored.
func (r *Reader) RawHeader() []byte { return r.rawHeader }

// Track returns the metadata track.
func (r *Reader) Track() *metatrack.Track { return r.track }

// Len returns the number of complete records.
func (r *Reader) Len() int { return len(r.records) }

// Truncated reports whether the file ended inside a record.
func (r *Reader) Truncated() bool { return r.truncated }

// BufferSize returns the scratch size needed to hold any record's
// metadata.
func (r *Reader) BufferSize() int { return r.track.MaxRecordSize() }

// PeekMetadata copies the metadata of the nearest-preceding record for
// time into buf. See metatrack.Track.PeekMetadata.
func (r *Reader) PeekMetadata(time float64, buf []byte) (int, error) {
	return r.track.PeekMetadata(time, buf)
}

// Pixels returns the pixel bytes of record i, nil for a record written
// without pixels. The slice aliases the loaded file.
func (r *Reader) Pixels(i int) []byte {
	if pixels := r.records[i].pixels; len(pixels) > 0 {
		return pixels
	}
	return nil
}

// Info returns the storage details of record i.
func (r *Reader) Info(i int) RecordInfo { return r.records[i].info }

// Verify recomputes every record's digest. The error joins one
// ErrCorrupt-wrapping error per mismatched record.
func (r *Reader) Verify() error {
	var errs []error
	for i, record := range r.records {
		metadata := r.track.Record(i).Data
		if got := recordDigest(metadata, record.pixels); got != record.info.Digest {
			errs = append(errs, fmt.Errorf("%w: record %d at %.3fs: digest %s, stored %s",
				ErrCorrupt, i, record.info.Time, got, record.info.Digest))
		}
	}
	return errors.Join(errs...)
}

// Stats summarizes the records.
type Stats struct {
	Records       int
	Truncated     bool
	FirstTime     float64
	LastTime      float64
	MetadataBytes int64
	StoredBytes   int64
	PixelBytes    int64
	// MissingPixels counts records written without pixels.
	MissingPixels int
	ByCompression map[Compression]int
}

// Stats computes summary statistics.
func (r *Reader) Stats() Stats {
	stats := Stats{
		Records:       len(r.records),
		Truncated:     r.truncated,
		ByCompression: make(map[Compression]int),
	}
	stats.FirstTime, stats.LastTime, _ = r.track.Span()
	for _, record := range r.records {
		stats.MetadataBytes += int64(record.info.RawLen)
		stats.StoredBytes += int64(record.info.StoredLen)
		stats.PixelBytes += int64(record.info.PixelsLen)
		if record.info.PixelsLen == 0 {
			stats.MissingPixels++
		}
		stats.ByCompression[record.info.Compression]++
	}
	return stats
}

// Close releases the loaded file.
func (r *Reader) Close() error {
	r.records = nil
	r.rawHeader = nil
	return nil
}
