// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/bureau-foundation/capturetrack/lib/metatrack"
	"github.com/bureau-foundation/capturetrack/lib/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHeader() metatrack.Header {
	return metatrack.Header{
		Version:         metatrack.FormatVersion,
		ModelName:       "test-device",
		ScreenWidth:     1080,
		ScreenHeight:    2400,
		EncoderNames:    []string{"planes", "meshes"},
		RecordingID:     uuid.MustParse("0b9a3f7e-2c4d-4e8f-9a1b-3c5d7e9f1a2b"),
		Producer:        "capturetrack/test",
		TargetFrameRate: 30,
	}
}

type frame struct {
	time     float64
	pixels   []byte
	metadata []byte
}

func testFrames() []frame {
	// Repetitive metadata compresses; random-looking metadata does
	// not.
	return []frame{
		{0, []byte("pixels-0"), bytes.Repeat([]byte("plane "), 200)},
		{1.0 / 30, nil, []byte{0x13, 0x37, 0xc0, 0xde}},
		{2.0 / 30, []byte("pixels-2"), bytes.Repeat([]byte{1, 2, 3, 4}, 512)},
	}
}

func writeRecording(t *testing.T, compression Compression, frames []frame) string {
	t.Helper()
	path := testutil.TempPath(t, "recording.ctrk")
	writer, err := Create(path, testHeader(), Options{Compression: compression, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, f := range frames {
		if err := writer.AppendFrame(f.pixels, f.metadata, f.time); err != nil {
			t.Fatalf("AppendFrame(%v): %v", f.time, err)
		}
	}
	if err := writer.EndRecording(); err != nil {
		t.Fatalf("EndRecording: %v", err)
	}
	return path
}

func TestRoundTripPerCompression(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd, CompressionAuto} {
		t.Run(compression.String(), func(t *testing.T) {
			frames := testFrames()
			path := writeRecording(t, compression, frames)

			reader, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer reader.Close()

			header := reader.Header()
			if header.RecordingID != testHeader().RecordingID || header.ModelName != "test-device" {
				t.Errorf("header = %+v", header)
			}
			if header.Compression != compression.String() {
				t.Errorf("header compression = %q, want %q", header.Compression, compression)
			}
			if reader.Len() != len(frames) || reader.Truncated() {
				t.Fatalf("Len() = %d, Truncated() = %v", reader.Len(), reader.Truncated())
			}
			for i, f := range frames {
				record := reader.Track().Record(i)
				if record.Time != f.time || !bytes.Equal(record.Data, f.metadata) {
					t.Errorf("record %d = (%v, %d bytes), want (%v, %d bytes)", i, record.Time, len(record.Data), f.time, len(f.metadata))
				}
				if !bytes.Equal(reader.Pixels(i), f.pixels) {
					t.Errorf("pixels %d = %q, want %q", i, reader.Pixels(i), f.pixels)
				}
			}
			if err := reader.Verify(); err != nil {
				t.Errorf("Verify: %v", err)
			}
		})
	}
}

func TestIncompressibleFallsBackToNone(t *testing.T) {
	frames := []frame{{0, nil, []byte{0x13, 0x37, 0xc0, 0xde}}}
	path := writeRecording(t, CompressionLZ4, frames)
	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := reader.Info(0).Compression; got != CompressionNone {
		t.Errorf("stored compression = %s, want none", got)
	}
}

func TestAutoCompressionPicksZstdForRepetitiveData(t *testing.T) {
	path := writeRecording(t, CompressionAuto, testFrames())
	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := reader.Info(0).Compression; got != CompressionZstd {
		t.Errorf("record 0 compression = %s, want zstd", got)
	}
	stats := reader.Stats()
	if stats.StoredBytes >= stats.MetadataBytes {
		t.Errorf("stored %d bytes for %d bytes of metadata", stats.StoredBytes, stats.MetadataBytes)
	}
	if stats.MissingPixels != 1 {
		t.Errorf("MissingPixels = %d, want 1", stats.MissingPixels)
	}
}

func TestTruncatedTrailingRecordIsTolerated(t *testing.T) {
	frames := testFrames()
	path := writeRecording(t, CompressionNone, frames)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// Cut into the middle of the last record.
	if err := os.WriteFile(path, data[:len(data)-10], 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Open truncated file: %v", err)
	}
	if !reader.Truncated() {
		t.Error("Truncated() = false")
	}
	if reader.Len() != len(frames)-1 {
		t.Errorf("Len() = %d, want %d", reader.Len(), len(frames)-1)
	}
	if err := reader.Verify(); err != nil {
		t.Errorf("Verify on intact records: %v", err)
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	frames := testFrames()
	path := writeRecording(t, CompressionNone, frames)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// Flip the last byte: metadata of the final record.
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	err = reader.Verify()
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Verify() = %v, want ErrCorrupt", err)
	}
	if want := fmt.Sprintf("record %d", len(frames)-1); !bytes.Contains([]byte(err.Error()), []byte(want)) {
		t.Errorf("Verify() error %q does not name %s", err, want)
	}
}

func TestOversizedRawLengthIsCorrupt(t *testing.T) {
	path := writeRecording(t, CompressionLZ4, testFrames()[:1])
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// Magic, header length, header, then the first record header with
	// RawLen at offset 20.
	headerLen := int(binary.LittleEndian.Uint32(data[8:12]))
	rawLenOffset := 12 + headerLen + 20
	binary.LittleEndian.PutUint32(data[rawLenOffset:], 0xffffffff)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Open(path); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Open() = %v, want ErrCorrupt", err)
	}
}

func TestDecompressRefusesOversizedRawLength(t *testing.T) {
	for _, tag := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		if _, err := decompress([]byte{1, 2, 3}, tag, MaxMetadataSize+1); err == nil {
			t.Errorf("decompress(%s) accepted a raw length above MaxMetadataSize", tag)
		}
	}
}

func TestWriterRejectsOversizedMetadata(t *testing.T) {
	path := testutil.TempPath(t, "oversized.ctrk")
	writer, err := Create(path, testHeader(), Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer writer.EndRecording()
	if err := writer.AppendFrame(nil, make([]byte, MaxMetadataSize+1), 0); err == nil {
		t.Fatal("AppendFrame accepted metadata above MaxMetadataSize")
	}
}

func TestOpenRejectsForeignFile(t *testing.T) {
	path := testutil.WriteFile(t, "not-a-track.bin", []byte("GIF89a plus some bytes"))
	if _, err := Open(path); !errors.Is(err, ErrNotTrackFile) {
		t.Errorf("Open() = %v, want ErrNotTrackFile", err)
	}
}

func TestWriterLifecycleErrors(t *testing.T) {
	writer := NewWriter(Options{Logger: quietLogger()})
	if err := writer.AppendFrame(nil, []byte{1}, 0); !errors.Is(err, ErrNotRecording) {
		t.Errorf("AppendFrame before start = %v, want ErrNotRecording", err)
	}
	if err := writer.EndRecording(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("EndRecording before start = %v, want ErrNotRecording", err)
	}

	path := testutil.TempPath(t, "lifecycle.ctrk")
	if err := writer.StartRecording(path, testHeader()); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if err := writer.StartRecording(path, testHeader()); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second StartRecording = %v, want ErrAlreadyRecording", err)
	}
	if err := writer.AppendFrame(nil, []byte{1}, 1); err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	if err := writer.AppendFrame(nil, []byte{2}, 0.5); !errors.Is(err, metatrack.ErrOutOfOrder) {
		t.Errorf("out-of-order AppendFrame = %v, want ErrOutOfOrder", err)
	}
	if err := writer.EndRecording(); err != nil {
		t.Fatalf("EndRecording: %v", err)
	}
	if stats := writer.Stats(); stats.Records != 1 {
		t.Errorf("Records = %d, want 1", stats.Records)
	}
}

func TestPeekMetadataThroughReader(t *testing.T) {
	frames := testFrames()
	reader, err := Open(writeRecording(t, CompressionZstd, frames))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf := make([]byte, reader.BufferSize())
	n, err := reader.PeekMetadata(0.05, buf)
	if err != nil {
		t.Fatalf("PeekMetadata: %v", err)
	}
	if !bytes.Equal(buf[:n], frames[1].metadata) {
		t.Errorf("PeekMetadata(0.05) returned %d bytes, want record 1", n)
	}
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd", "auto"} {
		compression, err := ParseCompression(name)
		if err != nil {
			t.Fatalf("ParseCompression(%q): %v", name, err)
		}
		if compression.String() != name {
			t.Errorf("round trip %q -> %q", name, compression)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression(gzip) succeeded")
	}
}
