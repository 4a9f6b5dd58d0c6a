// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

// Reader reads consecutive sections out of a byte span. Returned
// slices alias the underlying buffer; callers that retain them past
// the buffer's lifetime must copy.
type Reader struct {
	data   []byte
	offset int
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.offset
}

// Next consumes and returns the next n bytes.
func (r *Reader) Next(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrSizeMismatch, n, r.offset, r.Remaining())
	}
	section := r.data[r.offset : r.offset+n : r.offset+n]
	r.offset += n
	return section, nil
}

// Uint8 consumes one byte.
func (r *Reader) Uint8() (uint8, error) {
	section, err := r.Next(1)
	if err != nil {
		return 0, err
	}
	return section[0], nil
}

// Uint32 consumes a little-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	section, err := r.Next(4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(section), nil
}

// Bytes consumes a u32 length prefix and the range it describes.
func (r *Reader) Bytes() ([]byte, error) {
	length, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if uint64(length) > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: section declares %d bytes, %d remain", ErrSizeMismatch, length, r.Remaining())
	}
	return r.Next(int(length))
}

// ReadValue consumes exactly one encoded T.
func ReadValue[T any](r *Reader, out *T) error {
	section, err := r.Next(mustStride[T]())
	if err != nil {
		return err
	}
	return DecodeValue(section, out)
}
