// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"errors"
	"reflect"
	"testing"
)

type sample struct {
	ID    uint64
	Value float32
	Flag  uint8
	_     [3]uint8
}

func TestSize(t *testing.T) {
	if got := Size[sample](); got != 16 {
		t.Errorf("Size[sample]() = %d, want 16", got)
	}
	if got := Size[[]byte](); got != -1 {
		t.Errorf("Size[[]byte]() = %d, want -1", got)
	}
}

func TestValueRoundtrip(t *testing.T) {
	original := sample{ID: 42, Value: 1.5, Flag: 7}
	data := AppendValue(nil, original)
	if len(data) != 16 {
		t.Fatalf("encoded length = %d, want 16", len(data))
	}

	var decoded sample
	if err := DecodeValue(data, &decoded); err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if decoded != original {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestDecodeValueSizeMismatch(t *testing.T) {
	data := AppendValue(nil, sample{ID: 1})

	for _, length := range []int{0, 15, 17} {
		buffer := make([]byte, length)
		copy(buffer, data)
		var decoded sample
		err := DecodeValue(buffer, &decoded)
		if !errors.Is(err, ErrSizeMismatch) {
			t.Errorf("DecodeValue(%d bytes) error = %v, want ErrSizeMismatch", length, err)
		}
		if decoded != (sample{}) {
			t.Errorf("DecodeValue(%d bytes) partially decoded %+v", length, decoded)
		}
	}
}

func TestSliceRoundtrip(t *testing.T) {
	original := []sample{
		{ID: 1, Value: 0.25, Flag: 1},
		{ID: 2, Value: -3, Flag: 2},
		{ID: 3, Value: 1e6, Flag: 3},
	}
	data := AppendSlice([]byte{0xAA}, original)
	if len(data) != 1+3*16 {
		t.Fatalf("encoded length = %d, want %d", len(data), 1+3*16)
	}
	if data[0] != 0xAA {
		t.Error("AppendSlice overwrote the existing prefix")
	}

	decoded, err := DecodeSlice[sample](data[1:])
	if err != nil {
		t.Fatalf("DecodeSlice: %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestDecodeSliceEmpty(t *testing.T) {
	decoded, err := DecodeSlice[sample](nil)
	if err != nil {
		t.Fatalf("DecodeSlice(nil): %v", err)
	}
	if decoded != nil {
		t.Errorf("DecodeSlice(nil) = %v, want nil", decoded)
	}
	if got := AppendSlice[sample](nil, nil); len(got) != 0 {
		t.Errorf("AppendSlice(nil) produced %d bytes", len(got))
	}
}

func TestDecodeSliceNotMultipleOfStride(t *testing.T) {
	data := AppendSlice(nil, []sample{{ID: 1}, {ID: 2}})
	decoded, err := DecodeSlice[sample](data[:len(data)-1])
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("error = %v, want ErrSizeMismatch", err)
	}
	if decoded != nil {
		t.Errorf("partial decode returned %d values", len(decoded))
	}
}

func TestNonFixedTypePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("AppendValue with a string field should panic")
		}
	}()
	type notFixed struct{ Name string }
	AppendValue(nil, notFixed{Name: "x"})
}

func TestReaderSections(t *testing.T) {
	var data []byte
	data = append(data, 9)
	data = AppendUint32(data, 0xDEADBEEF)
	data, err := AppendBytes(data, []byte("payload"))
	if err != nil {
		t.Fatalf("AppendBytes: %v", err)
	}
	data = AppendValue(data, sample{ID: 5})

	reader := NewReader(data)
	flag, err := reader.Uint8()
	if err != nil || flag != 9 {
		t.Fatalf("Uint8 = %d, %v", flag, err)
	}
	word, err := reader.Uint32()
	if err != nil || word != 0xDEADBEEF {
		t.Fatalf("Uint32 = %#x, %v", word, err)
	}
	payload, err := reader.Bytes()
	if err != nil || string(payload) != "payload" {
		t.Fatalf("Bytes = %q, %v", payload, err)
	}
	var value sample
	if err := ReadValue(reader, &value); err != nil || value.ID != 5 {
		t.Fatalf("ReadValue = %+v, %v", value, err)
	}
	if reader.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", reader.Remaining())
	}
}

func TestReaderTruncation(t *testing.T) {
	data := AppendUint32(nil, 100)
	data = append(data, "short"...)

	reader := NewReader(data)
	if _, err := reader.Bytes(); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("Bytes on truncated section: error = %v, want ErrSizeMismatch", err)
	}

	reader = NewReader([]byte{1, 2})
	if _, err := reader.Uint32(); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("Uint32 on 2 bytes: error = %v, want ErrSizeMismatch", err)
	}
}
