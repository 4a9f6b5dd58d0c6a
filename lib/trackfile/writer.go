// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackfile

import (
	"bufio"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/bureau-foundation/capturetrack/lib/codec"
	"github.com/bureau-foundation/capturetrack/lib/metatrack"
	"github.com/bureau-foundation/capturetrack/lib/wire"
)

// Options configures a Writer.
type Options struct {
	// Compression applies to every record's metadata. The zero value
	// is CompressionNone.
	Compression Compression

	// Logger receives recording lifecycle messages. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// WriterStats counts what a Writer has written in the current or last
// recording.
type WriterStats struct {
	Records       int
	MetadataBytes int64
	StoredBytes   int64
	PixelBytes    int64
	ByCompression map[Compression]int
}

// Writer writes one recording at a time. It implements the muxer a
// recording session drives: StartRecording, then AppendFrame per frame
// from any goroutine, then EndRecording.
type Writer struct {
	options Options
	logger  *slog.Logger

	mu       sync.Mutex
	file     *os.File
	buffered *bufio.Writer
	path     string
	lastTime float64
	scratch  []byte
	stats    WriterStats
}

// NewWriter returns an idle Writer.
func NewWriter(options Options) *Writer {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{options: options, logger: logger}
}

// Create starts a recording at path with a new Writer.
func Create(path string, header metatrack.Header, options Options) (*Writer, error) {
	writer := NewWriter(options)
	if err := writer.StartRecording(path, header); err != nil {
		return nil, err
	}
	return writer, nil
}

// StartRecording creates the file at path, replacing any existing
// file, and writes the header. Header.Compression is filled from the
// writer options when empty.
func (w *Writer) StartRecording(path string, header metatrack.Header) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyRecording, w.path)
	}

	if header.Compression == "" {
		header.Compression = w.options.Compression.String()
	}
	headerBytes, err := codec.Marshal(header)
	if err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	if len(headerBytes) > maxHeaderSize {
		return fmt.Errorf("header is %d bytes, limit is %d", len(headerBytes), maxHeaderSize)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating recording: %w", err)
	}
	buffered := bufio.NewWriterSize(file, 256<<10)

	prefix := append(make([]byte, 0, len(magic)+4), magic[:]...)
	prefix = wire.AppendUint32(prefix, uint32(len(headerBytes)))
	if _, err := buffered.Write(prefix); err != nil {
		file.Close()
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := buffered.Write(headerBytes); err != nil {
		file.Close()
		return fmt.Errorf("writing header: %w", err)
	}

	w.file = file
	w.buffered = buffered
	w.path = path
	w.lastTime = math.Inf(-1)
	w.stats = WriterStats{ByCompression: make(map[Compression]int)}
	w.logger.Info("recording started",
		"path", path,
		"recording_id", header.RecordingID,
		"encoders", header.EncoderNames,
		"compression", header.Compression,
	)
	return nil
}

// AppendFrame writes one record. pixels may be nil for a frame whose
// readback failed. Times must be non-decreasing.
func (w *Writer) AppendFrame(pixels, metadata []byte, time float64) error {
	if math.IsNaN(time) || math.IsInf(time, 0) {
		return fmt.Errorf("trackfile: invalid frame time %v", time)
	}
	if uint64(len(pixels)) > math.MaxUint32 {
		return fmt.Errorf("trackfile: pixels exceed the 4 GiB record limit")
	}
	if len(metadata) > MaxMetadataSize {
		return fmt.Errorf("trackfile: metadata of %d bytes exceeds %d", len(metadata), MaxMetadataSize)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return ErrNotRecording
	}
	if time < w.lastTime {
		return fmt.Errorf("%w: %v after %v", metatrack.ErrOutOfOrder, time, w.lastTime)
	}

	stored, tag, err := compress(metadata, w.options.Compression)
	if err != nil {
		return fmt.Errorf("compressing metadata: %w", err)
	}
	header := recordHeader{
		Time:        time,
		Compression: tag,
		PixelsLen:   uint32(len(pixels)),
		StoredLen:   uint32(len(stored)),
		RawLen:      uint32(len(metadata)),
		Digest:      recordDigest(metadata, pixels),
	}
	w.scratch = wire.AppendValue(w.scratch[:0], header)
	for _, section := range [][]byte{w.scratch, pixels, stored} {
		if _, err := w.buffered.Write(section); err != nil {
			return fmt.Errorf("writing record %d: %w", w.stats.Records, err)
		}
	}

	w.lastTime = time
	w.stats.Records++
	w.stats.MetadataBytes += int64(len(metadata))
	w.stats.StoredBytes += int64(len(stored))
	w.stats.PixelBytes += int64(len(pixels))
	w.stats.ByCompression[tag]++
	return nil
}

// EndRecording flushes and closes the file.
func (w *Writer) EndRecording() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return ErrNotRecording
	}
	file := w.file
	w.file = nil

	flushErr := w.buffered.Flush()
	w.buffered = nil
	syncErr := file.Sync()
	closeErr := file.Close()
	switch {
	case flushErr != nil:
		return fmt.Errorf("flushing recording: %w", flushErr)
	case syncErr != nil:
		return fmt.Errorf("syncing recording: %w", syncErr)
	case closeErr != nil:
		return fmt.Errorf("closing recording: %w", closeErr)
	}
	w.logger.Info("recording finished",
		"path", w.path,
		"records", w.stats.Records,
		"metadata_bytes", w.stats.MetadataBytes,
		"stored_bytes", w.stats.StoredBytes,
	)
	return nil
}

// Stats returns counters for the current or last recording.
func (w *Writer) Stats() WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	stats := w.stats
	stats.ByCompression = maps.Clone(w.stats.ByCompression)
	return stats
}
