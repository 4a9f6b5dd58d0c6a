// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the injectable time source for capturetrack.
//
// Session time (the metadata queue's frame-rate buckets, record
// timestamps) and playback pacing read time through a [Clock] instead
// of the time package. Production code uses [Real]; tests use [Fake],
// which stands still until Advance is called, so frame timing in tests
// is exact:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	queue := metaqueue.New(metaqueue.Config{TargetFrameRate: 60, Clock: fake})
//	queue.Enqueue(frame)             // t = 0.000
//	fake.Advance(10 * time.Millisecond)
//	queue.Enqueue(frame)             // same 1/60 s bucket, rejected
//
// Every fake ticker registers a waiter; WaitForTimers lets a test wait
// for a goroutine to create its ticker before advancing.
package clock
