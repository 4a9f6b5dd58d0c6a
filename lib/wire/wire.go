// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"
)

// ErrSizeMismatch is returned when a byte span's length is not
// consistent with the declared stride of the type being decoded.
var ErrSizeMismatch = errors.New("wire: size mismatch")

// order is the byte order of every encoded value. Recordings are read
// back on arbitrary hosts, so the layout never depends on the host.
var order = binary.LittleEndian

// Size returns the encoded stride of T, or -1 if T is not a
// fixed-layout type.
func Size[T any]() int {
	var zero T
	return binary.Size(zero)
}

// mustStride returns the stride of T and panics when T has no fixed
// layout. Record types are chosen at compile time, so a non-fixed type
// here is a programming error, not bad input.
func mustStride[T any]() int {
	stride := Size[T]()
	if stride <= 0 {
		var zero T
		panic(fmt.Sprintf("wire: %s does not have a fixed layout", reflect.TypeOf(zero)))
	}
	return stride
}

// AppendValue appends the encoding of v to dst and returns the
// extended buffer.
func AppendValue[T any](dst []byte, v T) []byte {
	mustStride[T]()
	out, err := binary.Append(dst, order, v)
	if err != nil {
		panic("wire: encoding fixed-layout value: " + err.Error())
	}
	return out
}

// AppendSlice appends the encoding of every element of values to dst
// in one bulk operation.
func AppendSlice[T any](dst []byte, values []T) []byte {
	mustStride[T]()
	if len(values) == 0 {
		return dst
	}
	out, err := binary.Append(dst, order, values)
	if err != nil {
		panic("wire: encoding fixed-layout slice: " + err.Error())
	}
	return out
}

// DecodeValue decodes data into out. The length of data must equal the
// stride of T exactly.
func DecodeValue[T any](data []byte, out *T) error {
	stride := mustStride[T]()
	if len(data) != stride {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(data), stride)
	}
	if _, err := binary.Decode(data, order, out); err != nil {
		return fmt.Errorf("%w: %v", ErrSizeMismatch, err)
	}
	return nil
}

// DecodeSlice decodes data as a contiguous array of T. The length of
// data must be an exact multiple of the stride of T. An empty span
// decodes to a nil slice.
func DecodeSlice[T any](data []byte) ([]T, error) {
	stride := mustStride[T]()
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of stride %d", ErrSizeMismatch, len(data), stride)
	}
	if len(data) == 0 {
		return nil, nil
	}
	values := make([]T, len(data)/stride)
	if _, err := binary.Decode(data, order, values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSizeMismatch, err)
	}
	return values, nil
}

// AppendUint32 appends a little-endian uint32.
func AppendUint32(dst []byte, v uint32) []byte {
	return order.AppendUint32(dst, v)
}

// AppendBytes appends data prefixed by its u32 length. Returns an error
// if data is longer than a u32 can describe.
func AppendBytes(dst []byte, data []byte) ([]byte, error) {
	if uint64(len(data)) > uint64(^uint32(0)) {
		return dst, fmt.Errorf("wire: section of %d bytes exceeds u32 length prefix", len(data))
	}
	dst = order.AppendUint32(dst, uint32(len(data)))
	return append(dst, data...), nil
}
