// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackable

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/capturetrack/lib/wire"
)

// ErrConflictingChange is reported when one identity appears in more
// than one list of a single DiffSet.
var ErrConflictingChange = errors.New("identity appears in more than one change list")

// DiffSet is the change to one trackable kind since the previous
// non-empty diff for that kind.
type DiffSet[T Record] struct {
	Added   []T
	Updated []T
	Removed []Identity
}

// IsAvailable reports whether the diff carries any change.
func (d DiffSet[T]) IsAvailable() bool {
	return len(d.Added) > 0 || len(d.Updated) > 0 || len(d.Removed) > 0
}

// Validate checks that no identity appears twice across the three
// lists. The returned error wraps ErrConflictingChange and names the
// first offending identity.
func (d DiffSet[T]) Validate() error {
	seen := make(map[Identity]struct{}, len(d.Added)+len(d.Updated)+len(d.Removed))
	check := func(id Identity) error {
		if _, duplicate := seen[id]; duplicate {
			return fmt.Errorf("%w: %s", ErrConflictingChange, id)
		}
		seen[id] = struct{}{}
		return nil
	}
	for _, record := range d.Added {
		if err := check(record.TrackableID()); err != nil {
			return err
		}
	}
	for _, record := range d.Updated {
		if err := check(record.TrackableID()); err != nil {
			return err
		}
	}
	for _, id := range d.Removed {
		if err := check(id); err != nil {
			return err
		}
	}
	return nil
}

// EncodedDiff is the three independently encoded byte ranges of a
// DiffSet.
type EncodedDiff struct {
	Added   []byte
	Updated []byte
	Removed []byte
}

// EncodeDiff encodes each list with the bulk array path of lib/wire.
func EncodeDiff[T Record](added, updated []T, removed []Identity) EncodedDiff {
	return EncodedDiff{
		Added:   wire.AppendSlice(nil, added),
		Updated: wire.AppendSlice(nil, updated),
		Removed: wire.AppendSlice(nil, removed),
	}
}

// DecodeDiff decodes three byte ranges produced by EncodeDiff. Fails
// with wire.ErrSizeMismatch if any range is not a whole number of
// records.
func DecodeDiff[T Record](encoded EncodedDiff) (DiffSet[T], error) {
	added, err := wire.DecodeSlice[T](encoded.Added)
	if err != nil {
		return DiffSet[T]{}, fmt.Errorf("decoding added: %w", err)
	}
	updated, err := wire.DecodeSlice[T](encoded.Updated)
	if err != nil {
		return DiffSet[T]{}, fmt.Errorf("decoding updated: %w", err)
	}
	removed, err := wire.DecodeSlice[Identity](encoded.Removed)
	if err != nil {
		return DiffSet[T]{}, fmt.Errorf("decoding removed: %w", err)
	}
	return DiffSet[T]{Added: added, Updated: updated, Removed: removed}, nil
}

// AppendDiff appends the in-snapshot form of d: each list as a u32
// byte length followed by its records.
func AppendDiff[T Record](dst []byte, d DiffSet[T]) []byte {
	dst = appendRange(dst, d.Added)
	dst = appendRange(dst, d.Updated)
	return appendRange(dst, d.Removed)
}

func appendRange[T any](dst []byte, values []T) []byte {
	dst = wire.AppendUint32(dst, uint32(len(values)*wire.Size[T]()))
	return wire.AppendSlice(dst, values)
}

// ReadDiff reads the in-snapshot form written by AppendDiff.
func ReadDiff[T Record](reader *wire.Reader) (DiffSet[T], error) {
	var encoded EncodedDiff
	var err error
	if encoded.Added, err = reader.Bytes(); err != nil {
		return DiffSet[T]{}, fmt.Errorf("reading added range: %w", err)
	}
	if encoded.Updated, err = reader.Bytes(); err != nil {
		return DiffSet[T]{}, fmt.Errorf("reading updated range: %w", err)
	}
	if encoded.Removed, err = reader.Bytes(); err != nil {
		return DiffSet[T]{}, fmt.Errorf("reading removed range: %w", err)
	}
	return DecodeDiff[T](encoded)
}
