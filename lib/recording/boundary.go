// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"github.com/bureau-foundation/capturetrack/lib/metatrack"
	"github.com/bureau-foundation/capturetrack/lib/snapshot"
	"github.com/bureau-foundation/capturetrack/lib/trackable"
)

// Sensors supplies the per-frame tracking state.
type Sensors interface {
	// CameraFrame returns the latest camera frame. ok is false when
	// the camera has not produced a frame yet; the session skips the
	// update.
	CameraFrame() (frame snapshot.CameraFrame, ok bool)

	// DevicePose returns the current device pose.
	DevicePose() trackable.Pose
}

// Completion is the result of one readback request.
type Completion struct {
	// Sequence is the sequence number passed to Request.
	Sequence uint64
	// Pixels is the captured frame. Only valid when Err is nil. The
	// muxer receives it directly; the readback must not reuse it.
	Pixels []byte
	Err    error
}

// Readback captures rendered frames asynchronously.
//
// Completions must be delivered in request order, and exactly once for
// every Request that returned nil. When Request returns an error the
// callback must never be invoked. The callback may run on any
// goroutine, including synchronously inside Request.
type Readback interface {
	Request(sequence uint64, onComplete func(Completion)) error
}

// Muxer writes paired pixel and metadata records into a recording.
// trackfile.Writer is the implementation shipped with this module.
type Muxer interface {
	StartRecording(path string, header metatrack.Header) error
	// AppendFrame writes one record. pixels is nil for a record whose
	// pixels were lost; its metadata is still needed to keep the
	// trackable diff chain continuous.
	AppendFrame(pixels, metadata []byte, time float64) error
	EndRecording() error
}
