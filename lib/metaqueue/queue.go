// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metaqueue

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/capturetrack/lib/clock"
)

var (
	// ErrQueueUnderflow is the panic value when a frame is dequeued
	// from an empty queue. It indicates a readback completion for a
	// frame that was never enqueued, which is a programming error.
	ErrQueueUnderflow = errors.New("metaqueue: dequeue from empty queue")

	// ErrDesync is returned by Claim when the queue head does not
	// belong to the completing frame.
	ErrDesync = errors.New("metaqueue: readback completion does not match queue head")
)

// PendingFrame is one enqueued frame. Data is owned by the queue until
// the frame is dequeued, then by the caller.
type PendingFrame struct {
	Sequence uint64
	// Time is seconds since the first Enqueue of the session.
	Time float64
	Data []byte
}

// Config configures a Queue.
type Config struct {
	// TargetFrameRate is the maximum number of frames accepted per
	// second of session time. Must be positive.
	TargetFrameRate float64

	// Clock supplies session time. Nil means clock.Real().
	Clock clock.Clock
}

// Stats are cumulative counters since the Queue was created.
type Stats struct {
	Accepted     uint64
	Deduplicated uint64
	Dequeued     uint64
	Desynced     uint64
	Discarded    uint64
}

// Queue is the FIFO of frames waiting for their pixels.
//
// Thread-safe: all methods may be called concurrently, and none block
// beyond the internal mutex.
type Queue struct {
	rate  float64
	clock clock.Clock

	mu      sync.Mutex
	entries []PendingFrame
	// start is the session origin, set by the first Enqueue.
	start   time.Time
	started bool
	// bucket is floor(time × rate) of the last accepted frame.
	bucket   float64
	accepted bool
	// next is the sequence number the next accepted frame receives.
	// Sequences start at 1 and are never reused, even across Clear.
	next  uint64
	stats Stats
}

// New creates a Queue. Panics if the target frame rate is not positive.
func New(config Config) *Queue {
	if !(config.TargetFrameRate > 0) || math.IsInf(config.TargetFrameRate, 0) {
		panic(fmt.Sprintf("metaqueue: target frame rate must be positive and finite, got %v", config.TargetFrameRate))
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	return &Queue{
		rate:  config.TargetFrameRate,
		clock: config.Clock,
		next:  1,
	}
}

// Enqueue offers a frame's metadata. The frame is rejected when another
// frame was already accepted in the same 1/rate-second bucket. On
// acceptance data is copied, so the caller may reuse its buffer, and
// the frame's sequence number is returned.
func (q *Queue) Enqueue(data []byte) (sequence uint64, accepted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()
	if !q.started {
		q.start = now
		q.started = true
	}
	elapsed := now.Sub(q.start).Seconds()
	bucket := math.Floor(elapsed * q.rate)
	if q.accepted && bucket == q.bucket {
		q.stats.Deduplicated++
		return 0, false
	}
	q.bucket = bucket
	q.accepted = true

	sequence = q.next
	q.next++
	q.entries = append(q.entries, PendingFrame{
		Sequence: sequence,
		Time:     elapsed,
		Data:     append([]byte(nil), data...),
	})
	q.stats.Accepted++
	return sequence, true
}

// Dequeue removes and returns the head frame. Panics with
// ErrQueueUnderflow if the queue is empty.
func (q *Queue) Dequeue() PendingFrame {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		panic(ErrQueueUnderflow)
	}
	q.stats.Dequeued++
	return q.popLocked()
}

// Claim removes and returns the frame with the given sequence number.
// Frames ahead of it in the queue are older frames whose completion
// never arrived; they are removed too and returned as stale, oldest
// first. If the head is newer than sequence the frame was already
// discarded or cleared, and Claim returns ErrDesync without popping.
//
// Claiming from an empty queue returns ErrDesync for a sequence that
// was issued, and panics with ErrQueueUnderflow for one that never was.
func (q *Queue) Claim(sequence uint64) (frame PendingFrame, stale []PendingFrame, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		if sequence == 0 || sequence >= q.next {
			panic(ErrQueueUnderflow)
		}
		q.stats.Desynced++
		return PendingFrame{}, nil, fmt.Errorf("%w: sequence %d, queue empty", ErrDesync, sequence)
	}
	if head := q.entries[0].Sequence; head > sequence {
		q.stats.Desynced++
		return PendingFrame{}, nil, fmt.Errorf("%w: sequence %d, head %d", ErrDesync, sequence, head)
	}
	for len(q.entries) > 0 && q.entries[0].Sequence < sequence {
		stale = append(stale, q.popLocked())
		q.stats.Desynced++
	}
	if len(q.entries) == 0 || q.entries[0].Sequence != sequence {
		// Every entry up to sequence was older; sequence itself was
		// discarded.
		return PendingFrame{}, stale, fmt.Errorf("%w: sequence %d not queued", ErrDesync, sequence)
	}
	q.stats.Dequeued++
	return q.popLocked(), stale, nil
}

// Discard removes the frame with the given sequence number wherever it
// is in the queue. Reports whether it was found.
func (q *Queue) Discard(sequence uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, entry := range q.entries {
		if entry.Sequence == sequence {
			// slices.Delete zeroes the vacated tail slot.
			q.entries = slices.Delete(q.entries, i, i+1)
			q.stats.Discarded++
			return true
		}
	}
	return false
}

// Clear drops every queued frame and resets the session origin and the
// frame-rate bucket. Sequence numbers keep increasing.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stats.Discarded += uint64(len(q.entries))
	clear(q.entries)
	q.entries = nil
	q.started = false
	q.accepted = false
	q.bucket = 0
}

// Len returns the number of queued frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Stats returns a copy of the counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

func (q *Queue) popLocked() PendingFrame {
	head := q.entries[0]
	q.entries[0] = PendingFrame{} // release data for GC
	q.entries = q.entries[1:]
	return head
}
