// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackfile

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a record's metadata is stored. The values
// are written into record headers and must not change.
type Compression uint8

const (
	// CompressionNone stores metadata as is.
	CompressionNone Compression = 0

	// CompressionLZ4 is LZ4 block compression: cheap enough to run on
	// every captured frame.
	CompressionLZ4 Compression = 1

	// CompressionZstd is zstd at the default level. Snapshots carrying
	// mesh geometry compress noticeably better than with LZ4.
	CompressionZstd Compression = 2

	// CompressionAuto is a writer option, never a stored tag: each
	// record is probed and stored with whichever of the above pays off.
	CompressionAuto Compression = 0xff
)

// String returns the name used in configuration and headers.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	case CompressionAuto:
		return "auto"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	case "auto":
		return CompressionAuto, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// errIncompressible means the compressed form is not smaller than the
// input; the record is stored uncompressed instead.
var errIncompressible = errors.New("data is incompressible")

// Shared zstd state. Encoder and Decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("trackfile: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("trackfile: zstd decoder initialization failed: " + err.Error())
	}
}

// compress returns data stored with the requested compression, and the
// tag actually used. Incompressible data falls back to
// CompressionNone.
func compress(data []byte, requested Compression) ([]byte, Compression, error) {
	if requested == CompressionAuto {
		requested = selectCompression(data)
	}
	var (
		stored []byte
		err    error
	)
	switch requested {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionLZ4:
		stored, err = compressLZ4(data)
	case CompressionZstd:
		stored, err = compressZstd(data)
	default:
		return nil, 0, fmt.Errorf("unsupported compression %s", requested)
	}
	if errors.Is(err, errIncompressible) {
		return data, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return stored, requested, nil
}

// decompress reverses compress. The result must be exactly rawLen
// bytes, and rawLen may not exceed MaxMetadataSize.
func decompress(stored []byte, tag Compression, rawLen int) ([]byte, error) {
	if rawLen < 0 || rawLen > MaxMetadataSize {
		return nil, fmt.Errorf("metadata size %d exceeds %d", rawLen, MaxMetadataSize)
	}
	switch tag {
	case CompressionNone:
		if len(stored) != rawLen {
			return nil, fmt.Errorf("uncompressed record: size %d does not match expected %d", len(stored), rawLen)
		}
		return stored, nil
	case CompressionLZ4:
		destination := make([]byte, rawLen)
		read, err := lz4.UncompressBlock(stored, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != rawLen {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, rawLen)
		}
		return destination, nil
	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != rawLen {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), rawLen)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported compression tag %d", uint8(tag))
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports 0 for data it cannot compress.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

// selectCompression probes data with zstd. A ratio of 1.5 or better
// selects zstd, 1.1 or better selects the cheaper LZ4, and anything
// less is stored uncompressed. Small snapshots (pose and camera only)
// usually land in the last group.
func selectCompression(data []byte) Compression {
	if len(data) == 0 {
		return CompressionNone
	}
	compressed := zstdEncoder.EncodeAll(data, nil)
	ratio := float64(len(data)) / float64(len(compressed))
	switch {
	case ratio >= 1.5:
		return CompressionZstd
	case ratio >= 1.1:
		return CompressionLZ4
	default:
		return CompressionNone
	}
}
