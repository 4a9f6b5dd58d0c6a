// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bureau-foundation/capturetrack/lib/trackable"
)

// Assembler gathers the current frame's state from its encoders into a
// Snapshot. It is driven from the single production goroutine: the
// Encode/Commit pair for one frame must not interleave with another.
// Sensor callbacks into the encoders may come from any goroutine.
type Assembler struct {
	encoders []Encoder
}

// NewAssembler returns an assembler over the given encoders, at most
// one per kind.
func NewAssembler(encoders ...Encoder) (*Assembler, error) {
	seen := make(map[Kind]bool, len(encoders))
	for _, encoder := range encoders {
		kind := encoder.Kind()
		if seen[kind] {
			return nil, fmt.Errorf("duplicate encoder for %s", kind)
		}
		seen[kind] = true
	}
	sorted := slices.Clone(encoders)
	slices.SortFunc(sorted, func(a, b Encoder) int { return int(a.Kind()) - int(b.Kind()) })
	return &Assembler{encoders: sorted}, nil
}

// Initialize prepares every encoder for a new session. If one fails,
// the encoders already initialized are disposed.
func (a *Assembler) Initialize() error {
	for i, encoder := range a.encoders {
		if err := encoder.Initialize(); err != nil {
			for _, initialized := range a.encoders[:i] {
				initialized.Dispose()
			}
			return fmt.Errorf("initializing %s encoder: %w", encoder.Kind(), err)
		}
	}
	return nil
}

// Assemble builds the snapshot for the current frame. Kinds without a
// pending change are left nil. Pending changes are not cleared.
func (a *Assembler) Assemble(camera CameraFrame, pose trackable.Pose) *Snapshot {
	s := &Snapshot{Camera: camera, Pose: pose}
	for _, encoder := range a.encoders {
		encoder.Encode(s)
	}
	return s
}

// Encode assembles the current frame and appends its wire form to dst.
func (a *Assembler) Encode(dst []byte, camera CameraFrame, pose trackable.Pose) ([]byte, error) {
	return Marshal(dst, a.Assemble(camera, pose))
}

// Commit clears the changes reported by the last Assemble or Encode.
// Call it once the snapshot has been accepted downstream; if it was
// rejected, skip Commit and the changes ride along with the next frame.
func (a *Assembler) Commit() {
	for _, encoder := range a.encoders {
		encoder.PostEncode()
	}
}

// Dispose releases every encoder's session state.
func (a *Assembler) Dispose() {
	for _, encoder := range a.encoders {
		encoder.Dispose()
	}
}

// EncoderNames returns the kind names of the configured encoders, in
// wire order. Recorded in file headers.
func (a *Assembler) EncoderNames() []string {
	names := make([]string, len(a.encoders))
	for i, encoder := range a.encoders {
		names[i] = encoder.Kind().String()
	}
	return names
}

// ErrNoEncoders is returned by NewAssemblerForKinds for an empty list.
var ErrNoEncoders = errors.New("no snapshot encoders configured")

// NewAssemblerForKinds builds an assembler with a fresh encoder for each
// named kind and returns the encoders by kind so callers can feed them.
func NewAssemblerForKinds(names []string) (*Assembler, map[Kind]Encoder, error) {
	if len(names) == 0 {
		return nil, nil, ErrNoEncoders
	}
	byKind := make(map[Kind]Encoder, len(names))
	encoders := make([]Encoder, 0, len(names))
	for _, name := range names {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, nil, err
		}
		var encoder Encoder
		switch kind {
		case KindPlanes:
			encoder = NewPlaneEncoder()
		case KindMeshes:
			encoder = NewMeshEncoder()
		case KindGeospatial:
			encoder = NewGeospatialEncoder()
		case KindStreetscape:
			encoder = NewStreetscapeEncoder()
		case KindPointClouds:
			encoder = NewPointCloudEncoder()
		}
		byKind[kind] = encoder
		encoders = append(encoders, encoder)
	}
	assembler, err := NewAssembler(encoders...)
	if err != nil {
		return nil, nil, err
	}
	return assembler, byKind, nil
}
