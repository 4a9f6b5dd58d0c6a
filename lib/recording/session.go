// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/capturetrack/lib/clock"
	"github.com/bureau-foundation/capturetrack/lib/metaqueue"
	"github.com/bureau-foundation/capturetrack/lib/metatrack"
	"github.com/bureau-foundation/capturetrack/lib/snapshot"
	"github.com/bureau-foundation/capturetrack/lib/version"
)

var (
	// ErrNotRunning is returned by Update and Stop on a session that
	// has not been started.
	ErrNotRunning = errors.New("recording: session not running")

	// ErrAlreadyRunning is returned by Start on a running session.
	ErrAlreadyRunning = errors.New("recording: session already running")
)

// DefaultInitialBufferSize is the starting capacity of the snapshot
// scratch buffer. It grows to fit the largest snapshot seen.
const DefaultInitialBufferSize = 64 << 10

// Config configures a Session.
type Config struct {
	// Assembler builds the per-frame snapshot. The session initializes
	// it on Start and disposes it on Stop. Required.
	Assembler *snapshot.Assembler

	Sensors  Sensors  // Required.
	Readback Readback // Required.
	Muxer    Muxer    // Required.

	// TargetFrameRate caps the number of frames recorded per second.
	// Must be positive.
	TargetFrameRate float64

	// Header supplies the device fields of the recording header
	// (model name, screen size). Version, encoder names, recording id,
	// producer and frame rate are filled in by Start; a non-zero
	// RecordingID or non-empty Producer is kept.
	Header metatrack.Header

	// Clock supplies session time. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives session lifecycle and frame-loss messages. Nil
	// means slog.Default().
	Logger *slog.Logger

	// InitialBufferSize is the starting scratch capacity. Zero means
	// DefaultInitialBufferSize.
	InitialBufferSize int
}

// Stats are cumulative counters since the session was created.
type Stats struct {
	// Updates counts Update calls on a running session.
	Updates uint64
	// NoCamera counts updates skipped because no camera frame was
	// available.
	NoCamera uint64
	// RequestFailures counts accepted frames whose readback could not
	// be requested.
	RequestFailures uint64
	// Written counts records written with pixels.
	Written uint64
	// MetadataOnly counts records written without pixels, because the
	// readback failed or its completion never arrived.
	MetadataOnly uint64
	// DroppedPixels counts completions that arrived for a frame no
	// longer queued.
	DroppedPixels uint64
	// MuxErrors counts AppendFrame failures.
	MuxErrors uint64

	Queue metaqueue.Stats
}

// Session records one capture at a time. Start, Update and Stop must
// be called from a single goroutine; readback completions may arrive
// on any goroutine.
type Session struct {
	assembler *snapshot.Assembler
	sensors   Sensors
	readback  Readback
	muxer     Muxer
	rate      float64
	template  metatrack.Header
	logger    *slog.Logger
	queue     *metaqueue.Queue
	initial   int

	mu      sync.Mutex
	running bool
	header  metatrack.Header
	scratch []byte

	// outstanding counts readback requests whose completion has not
	// run yet.
	outstanding sync.WaitGroup

	// muxMu serializes completions so records reach the muxer in
	// queue order.
	muxMu  sync.Mutex
	muxErr error

	statsMu sync.Mutex
	stats   Stats
}

// NewSession validates config and returns an idle session.
func NewSession(config Config) (*Session, error) {
	switch {
	case config.Assembler == nil:
		return nil, errors.New("recording: Assembler is required")
	case config.Sensors == nil:
		return nil, errors.New("recording: Sensors is required")
	case config.Readback == nil:
		return nil, errors.New("recording: Readback is required")
	case config.Muxer == nil:
		return nil, errors.New("recording: Muxer is required")
	case !(config.TargetFrameRate > 0) || math.IsInf(config.TargetFrameRate, 0):
		return nil, fmt.Errorf("recording: target frame rate must be positive, got %v", config.TargetFrameRate)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	initial := config.InitialBufferSize
	if initial <= 0 {
		initial = DefaultInitialBufferSize
	}
	return &Session{
		assembler: config.Assembler,
		sensors:   config.Sensors,
		readback:  config.Readback,
		muxer:     config.Muxer,
		rate:      config.TargetFrameRate,
		template:  config.Header,
		logger:    logger,
		initial:   initial,
		queue: metaqueue.New(metaqueue.Config{
			TargetFrameRate: config.TargetFrameRate,
			Clock:           config.Clock,
		}),
	}, nil
}

// Start initializes the encoders and opens a recording at path.
func (s *Session) Start(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	header := s.template
	header.Version = metatrack.FormatVersion
	header.EncoderNames = s.assembler.EncoderNames()
	header.TargetFrameRate = s.rate
	if header.RecordingID == uuid.Nil {
		header.RecordingID = uuid.New()
	}
	if header.Producer == "" {
		header.Producer = version.Producer()
	}

	if err := s.assembler.Initialize(); err != nil {
		return fmt.Errorf("initializing encoders: %w", err)
	}
	if err := s.muxer.StartRecording(path, header); err != nil {
		s.assembler.Dispose()
		return fmt.Errorf("starting recording: %w", err)
	}

	s.header = header
	s.scratch = make([]byte, 0, s.initial)
	s.muxMu.Lock()
	s.muxErr = nil
	s.muxMu.Unlock()
	s.running = true

	s.logger.Info("recording session started",
		"path", path,
		"recording_id", header.RecordingID,
		"encoders", header.EncoderNames,
		"target_frame_rate", s.rate,
	)
	return nil
}

// Header returns the header of the current or most recent recording.
func (s *Session) Header() metatrack.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}

// Running reports whether the session is between Start and Stop.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Update captures the current frame's metadata. Call once per rendered
// frame.
//
// A frame that falls in an already-recorded frame-rate bucket is
// skipped, as is a frame with no camera image. When the readback cannot
// be requested the frame is dropped and the request error returned;
// the session keeps running and the frame's trackable changes carry
// over to the next recorded frame.
func (s *Session) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}
	s.count(func(stats *Stats) { stats.Updates++ })

	camera, ok := s.sensors.CameraFrame()
	if !ok {
		s.count(func(stats *Stats) { stats.NoCamera++ })
		return nil
	}
	pose := s.sensors.DevicePose()

	data, err := s.assembler.Encode(s.scratch[:0], camera, pose)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	s.scratch = data

	sequence, accepted := s.queue.Enqueue(data)
	if !accepted {
		return nil
	}

	s.outstanding.Add(1)
	var once sync.Once
	err = s.readback.Request(sequence, func(completion Completion) {
		delivered := false
		once.Do(func() {
			delivered = true
			defer s.outstanding.Done()
			s.complete(sequence, completion)
		})
		if !delivered {
			s.logger.Warn("duplicate readback completion ignored", "sequence", sequence)
		}
	})
	if err != nil {
		s.outstanding.Done()
		s.queue.Discard(sequence)
		s.count(func(stats *Stats) { stats.RequestFailures++ })
		return fmt.Errorf("requesting readback for frame %d: %w", sequence, err)
	}

	s.assembler.Commit()
	return nil
}

// complete pairs a readback result with its queued metadata. The
// sequence is the one the request was issued for, so a misbehaving
// readback cannot claim a sequence that was never queued.
func (s *Session) complete(sequence uint64, completion Completion) {
	if completion.Sequence != sequence {
		s.logger.Warn("readback completion carries wrong sequence",
			"requested", sequence,
			"reported", completion.Sequence,
		)
	}

	s.muxMu.Lock()
	defer s.muxMu.Unlock()

	frame, stale, err := s.queue.Claim(sequence)
	for _, lost := range stale {
		s.logger.Warn("readback completion missing, writing metadata only",
			"sequence", lost.Sequence,
			"time", lost.Time,
		)
		s.appendLocked(nil, lost)
	}
	if err != nil {
		s.logger.Warn("dropping pixels for frame no longer queued",
			"sequence", sequence,
			"error", err,
		)
		s.count(func(stats *Stats) { stats.DroppedPixels++ })
		return
	}

	pixels := completion.Pixels
	if completion.Err != nil {
		s.logger.Warn("readback failed, writing metadata only",
			"sequence", sequence,
			"error", completion.Err,
		)
		pixels = nil
	}
	s.appendLocked(pixels, frame)
}

func (s *Session) appendLocked(pixels []byte, frame metaqueue.PendingFrame) {
	if err := s.muxer.AppendFrame(pixels, frame.Data, frame.Time); err != nil {
		s.logger.Error("writing frame failed",
			"sequence", frame.Sequence,
			"time", frame.Time,
			"error", err,
		)
		if s.muxErr == nil {
			s.muxErr = fmt.Errorf("writing frame %d: %w", frame.Sequence, err)
		}
		s.count(func(stats *Stats) { stats.MuxErrors++ })
		return
	}
	if pixels == nil {
		s.count(func(stats *Stats) { stats.MetadataOnly++ })
	} else {
		s.count(func(stats *Stats) { stats.Written++ })
	}
}

// Stop refuses further updates, waits for every outstanding readback,
// and closes the recording. The returned error joins the first muxer
// write failure of the session, if any, with the close error.
//
// There is no timeout: a readback that never completes blocks Stop.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}
	s.running = false

	s.outstanding.Wait()

	endErr := s.muxer.EndRecording()
	if pending := s.queue.Len(); pending > 0 {
		s.logger.Warn("discarding frames without completions", "count", pending)
	}
	s.queue.Clear()
	s.assembler.Dispose()
	s.scratch = nil

	s.muxMu.Lock()
	writeErr := s.muxErr
	s.muxMu.Unlock()

	stats := s.Stats()
	s.logger.Info("recording session stopped",
		"recording_id", s.header.RecordingID,
		"written", stats.Written,
		"metadata_only", stats.MetadataOnly,
		"deduplicated", stats.Queue.Deduplicated,
	)
	if endErr != nil {
		endErr = fmt.Errorf("ending recording: %w", endErr)
	}
	return errors.Join(writeErr, endErr)
}

// Stats returns a copy of the session counters.
func (s *Session) Stats() Stats {
	s.statsMu.Lock()
	stats := s.stats
	s.statsMu.Unlock()
	stats.Queue = s.queue.Stats()
	return stats
}

func (s *Session) count(update func(*Stats)) {
	s.statsMu.Lock()
	update(&s.stats)
	s.statsMu.Unlock()
}
