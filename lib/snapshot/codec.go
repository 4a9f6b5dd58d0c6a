// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/bureau-foundation/capturetrack/lib/trackable"
	"github.com/bureau-foundation/capturetrack/lib/wire"
)

// ErrMalformed is returned when a record is the right size but its
// structure is invalid (for example an unknown presence flag).
var ErrMalformed = errors.New("snapshot: malformed record")

const (
	absent  byte = 0
	present byte = 1
)

// Marshal appends the wire form of s to dst.
func Marshal(dst []byte, s *Snapshot) ([]byte, error) {
	dst = wire.AppendValue(dst, s.Camera)
	dst = wire.AppendValue(dst, s.Pose)

	var err error
	if dst, err = appendSection(dst, s.Planes, false); err != nil {
		return nil, fmt.Errorf("encoding planes: %w", err)
	}
	if dst, err = appendSection(dst, s.Meshes, true); err != nil {
		return nil, fmt.Errorf("encoding meshes: %w", err)
	}
	if s.Geospatial == nil {
		dst = append(dst, absent)
	} else {
		dst = append(dst, present)
		dst = wire.AppendValue(dst, *s.Geospatial)
	}
	if dst, err = appendSection(dst, s.Streetscape, true); err != nil {
		return nil, fmt.Errorf("encoding streetscape: %w", err)
	}
	if dst, err = appendSection(dst, s.PointClouds, true); err != nil {
		return nil, fmt.Errorf("encoding point clouds: %w", err)
	}
	return dst, nil
}

// Unmarshal decodes a record produced by Marshal. Payload bytes are
// copied, so the result does not alias data.
func Unmarshal(data []byte) (*Snapshot, error) {
	reader := wire.NewReader(data)
	s := &Snapshot{}

	if err := wire.ReadValue(reader, &s.Camera); err != nil {
		return nil, fmt.Errorf("reading camera frame: %w", err)
	}
	if err := wire.ReadValue(reader, &s.Pose); err != nil {
		return nil, fmt.Errorf("reading device pose: %w", err)
	}

	var err error
	if s.Planes, err = readSection[trackable.Plane](reader, false); err != nil {
		return nil, fmt.Errorf("reading planes: %w", err)
	}
	if s.Meshes, err = readSection[trackable.MeshInfo](reader, true); err != nil {
		return nil, fmt.Errorf("reading meshes: %w", err)
	}
	hasGeospatial, err := readPresence(reader)
	if err != nil {
		return nil, fmt.Errorf("reading geospatial: %w", err)
	}
	if hasGeospatial {
		var state GeospatialState
		if err := wire.ReadValue(reader, &state); err != nil {
			return nil, fmt.Errorf("reading geospatial: %w", err)
		}
		s.Geospatial = &state
	}
	if s.Streetscape, err = readSection[trackable.StreetscapeGeometry](reader, true); err != nil {
		return nil, fmt.Errorf("reading streetscape: %w", err)
	}
	if s.PointClouds, err = readSection[trackable.PointCloud](reader, true); err != nil {
		return nil, fmt.Errorf("reading point clouds: %w", err)
	}

	if remaining := reader.Remaining(); remaining != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after snapshot", wire.ErrSizeMismatch, remaining)
	}
	return s, nil
}

func appendSection[T trackable.Record](dst []byte, section *Section[T], withPayloads bool) ([]byte, error) {
	if section == nil {
		return append(dst, absent), nil
	}
	dst = append(dst, present)
	dst = trackable.AppendDiff(dst, section.Diff)
	if !withPayloads {
		return dst, nil
	}

	ids := slices.SortedFunc(maps.Keys(section.Payloads), trackable.Identity.Compare)
	dst = wire.AppendUint32(dst, uint32(len(ids)))
	var err error
	for _, id := range ids {
		dst = wire.AppendValue(dst, id)
		if dst, err = wire.AppendBytes(dst, section.Payloads[id]); err != nil {
			return nil, fmt.Errorf("payload for %s: %w", id, err)
		}
	}
	return dst, nil
}

func readSection[T trackable.Record](reader *wire.Reader, withPayloads bool) (*Section[T], error) {
	ok, err := readPresence(reader)
	if err != nil || !ok {
		return nil, err
	}
	diff, err := trackable.ReadDiff[T](reader)
	if err != nil {
		return nil, err
	}
	section := &Section[T]{Diff: diff}
	if !withPayloads {
		return section, nil
	}

	count, err := reader.Uint32()
	if err != nil {
		return nil, fmt.Errorf("reading payload count: %w", err)
	}
	// Each payload entry needs at least an identity and a length.
	if uint64(count)*uint64(wire.Size[trackable.Identity]()+4) > uint64(reader.Remaining()) {
		return nil, fmt.Errorf("%w: %d payloads declared, %d bytes remain", wire.ErrSizeMismatch, count, reader.Remaining())
	}
	if count > 0 {
		section.Payloads = make(map[trackable.Identity][]byte, count)
	}
	for range count {
		var id trackable.Identity
		if err := wire.ReadValue(reader, &id); err != nil {
			return nil, fmt.Errorf("reading payload identity: %w", err)
		}
		payload, err := reader.Bytes()
		if err != nil {
			return nil, fmt.Errorf("reading payload for %s: %w", id, err)
		}
		section.Payloads[id] = bytes.Clone(payload)
	}
	return section, nil
}

func readPresence(reader *wire.Reader) (bool, error) {
	flag, err := reader.Uint8()
	if err != nil {
		return false, err
	}
	switch flag {
	case absent:
		return false, nil
	case present:
		return true, nil
	default:
		return false, fmt.Errorf("%w: presence flag %d", ErrMalformed, flag)
	}
}
