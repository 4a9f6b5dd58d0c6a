// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"fmt"

	"github.com/bureau-foundation/capturetrack/lib/trackable"
	"github.com/bureau-foundation/capturetrack/lib/wire"
)

// EncodeMeshGeometry packs a vertex array and a triangle index buffer
// into a mesh payload: two u32 length-prefixed ranges.
func EncodeMeshGeometry(vertices []trackable.Vertex, indices []uint32) ([]byte, error) {
	payload, err := wire.AppendBytes(nil, wire.AppendSlice(nil, vertices))
	if err != nil {
		return nil, fmt.Errorf("encoding vertices: %w", err)
	}
	payload, err = wire.AppendBytes(payload, wire.AppendSlice(nil, indices))
	if err != nil {
		return nil, fmt.Errorf("encoding indices: %w", err)
	}
	return payload, nil
}

// DecodeMeshGeometry unpacks a payload produced by EncodeMeshGeometry.
func DecodeMeshGeometry(payload []byte) ([]trackable.Vertex, []uint32, error) {
	reader := wire.NewReader(payload)
	vertexBytes, err := reader.Bytes()
	if err != nil {
		return nil, nil, fmt.Errorf("reading vertices: %w", err)
	}
	indexBytes, err := reader.Bytes()
	if err != nil {
		return nil, nil, fmt.Errorf("reading indices: %w", err)
	}
	if reader.Remaining() != 0 {
		return nil, nil, fmt.Errorf("%w: %d trailing bytes in mesh payload", wire.ErrSizeMismatch, reader.Remaining())
	}
	vertices, err := wire.DecodeSlice[trackable.Vertex](vertexBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding vertices: %w", err)
	}
	indices, err := wire.DecodeSlice[uint32](indexBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding indices: %w", err)
	}
	return vertices, indices, nil
}

// EncodePoints packs point samples into a point cloud payload.
func EncodePoints(points []trackable.Point) []byte {
	return wire.AppendSlice(nil, points)
}

// DecodePoints unpacks a payload produced by EncodePoints.
func DecodePoints(payload []byte) ([]trackable.Point, error) {
	return wire.DecodeSlice[trackable.Point](payload)
}
