// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metatrack

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	// ErrOutOfOrder is returned by Append for a record whose time is
	// before the last record's.
	ErrOutOfOrder = errors.New("metatrack: record time goes backwards")

	// ErrBufferTooSmall is returned by PeekMetadata when the caller's
	// buffer cannot hold the record.
	ErrBufferTooSmall = errors.New("metatrack: buffer too small for record")

	// ErrNotFound is returned by PeekMetadata when no record precedes
	// the requested time.
	ErrNotFound = errors.New("metatrack: no record at or before time")
)

// Record is one frame's metadata.
type Record struct {
	Index int
	// Time is seconds since the start of the recording.
	Time float64
	Data []byte
}

// Track is a time-ordered sequence of metadata records.
//
// Thread-safe. Records returned by Record and At alias the track's
// storage and must not be modified.
type Track struct {
	mu      sync.RWMutex
	times   []float64
	data    [][]byte
	maxSize int
}

// Append adds a record. Times must be non-decreasing and finite. The
// track takes ownership of data.
func (t *Track) Append(time float64, data []byte) error {
	if math.IsNaN(time) || math.IsInf(time, 0) {
		return fmt.Errorf("metatrack: invalid record time %v", time)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.times); n > 0 && time < t.times[n-1] {
		return fmt.Errorf("%w: %v after %v", ErrOutOfOrder, time, t.times[n-1])
	}
	t.times = append(t.times, time)
	t.data = append(t.data, data)
	t.maxSize = max(t.maxSize, len(data))
	return nil
}

// Search returns the index of the nearest-preceding record: the last
// record whose time is at or before time. ok is false when the track is
// empty or time is before the first record. Records sharing a
// timestamp resolve to the last of them.
func (t *Track) Search(time float64) (index int, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.precedingLocked(time)
}

// precedingLocked finds the nearest-preceding index. NaN precedes
// nothing.
func (t *Track) precedingLocked(time float64) (int, bool) {
	if math.IsNaN(time) {
		return 0, false
	}
	// First record strictly after time.
	after := sort.Search(len(t.times), func(i int) bool { return t.times[i] > time })
	if after == 0 {
		return 0, false
	}
	return after - 1, true
}

// Record returns the record at index i. Panics if i is out of range.
func (t *Track) Record(i int) Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Record{Index: i, Time: t.times[i], Data: t.data[i]}
}

// At returns the nearest-preceding record for time.
func (t *Track) At(time float64) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.precedingLocked(time)
	if !ok {
		return Record{}, false
	}
	return Record{Index: i, Time: t.times[i], Data: t.data[i]}, true
}

// PeekMetadata copies the nearest-preceding record for time into buf
// and returns its length. Returns ErrNotFound when no record precedes
// time and ErrBufferTooSmall when buf is shorter than the record.
func (t *Track) PeekMetadata(time float64, buf []byte) (int, error) {
	record, ok := t.At(time)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrNotFound, time)
	}
	if len(buf) < len(record.Data) {
		return 0, fmt.Errorf("%w: record %d is %d bytes, buffer is %d", ErrBufferTooSmall, record.Index, len(record.Data), len(buf))
	}
	return copy(buf, record.Data), nil
}

// Len returns the number of records.
func (t *Track) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.times)
}

// MaxRecordSize returns the size of the largest record, which is the
// scratch buffer size a reader needs.
func (t *Track) MaxRecordSize() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.maxSize
}

// Span returns the times of the first and last records. ok is false for
// an empty track.
func (t *Track) Span() (first, last float64, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.times) == 0 {
		return 0, 0, false
	}
	return t.times[0], t.times[len(t.times)-1], true
}
