// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/bureau-foundation/capturetrack/lib/trackable"
)

var (
	// ErrDuplicateAdd: the diff adds an identity that is already
	// tracked.
	ErrDuplicateAdd = errors.New("add of an identity that is already tracked")

	// ErrUpdateOfUnknownIdentity: the diff updates an identity that is
	// not tracked.
	ErrUpdateOfUnknownIdentity = errors.New("update of an identity that is not tracked")

	// ErrRemoveOfUnknownIdentity: the diff removes an identity that is
	// not tracked.
	ErrRemoveOfUnknownIdentity = errors.New("remove of an identity that is not tracked")

	// ErrIdentityReuseViolation: the diff adds or updates an identity
	// that was removed earlier.
	ErrIdentityReuseViolation = errors.New("identity was removed and cannot reappear")
)

// ViolationError reports the first identity-protocol violation in a
// rejected diff. Err is one of the package sentinels or
// trackable.ErrConflictingChange.
type ViolationError struct {
	Kind string
	ID   trackable.Identity
	Err  error
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *ViolationError) Unwrap() error { return e.Err }

// Changes is the effect of one applied diff. Removed carries the last
// known value of each removed trackable.
type Changes[T trackable.Record] struct {
	Added   []T
	Updated []T
	Removed []T
}

// Empty reports whether nothing changed.
func (c Changes[T]) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// Registry is the set of live trackables of one kind.
//
// Not safe for concurrent use; the replayer owns one per kind.
type Registry[T trackable.Record] struct {
	kind    string
	live    map[trackable.Identity]T
	retired map[trackable.Identity]struct{}
}

// NewRegistry returns an empty registry. kind names the trackable kind
// in violation errors.
func NewRegistry[T trackable.Record](kind string) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		live:    make(map[trackable.Identity]T),
		retired: make(map[trackable.Identity]struct{}),
	}
}

// Apply validates diff against the registry and, if it is valid,
// applies it. On error the registry is unchanged and the error is a
// *ViolationError.
func (r *Registry[T]) Apply(diff trackable.DiffSet[T]) (Changes[T], error) {
	if err := r.check(diff); err != nil {
		return Changes[T]{}, err
	}

	var changes Changes[T]
	for _, value := range diff.Added {
		r.live[value.TrackableID()] = value
		changes.Added = append(changes.Added, value)
	}
	for _, value := range diff.Updated {
		r.live[value.TrackableID()] = value
		changes.Updated = append(changes.Updated, value)
	}
	for _, id := range diff.Removed {
		changes.Removed = append(changes.Removed, r.live[id])
		delete(r.live, id)
		r.retired[id] = struct{}{}
	}
	return changes, nil
}

func (r *Registry[T]) check(diff trackable.DiffSet[T]) error {
	seen := make(map[trackable.Identity]struct{}, len(diff.Added)+len(diff.Updated)+len(diff.Removed))
	visit := func(id trackable.Identity) error {
		if _, dup := seen[id]; dup {
			return r.violation(id, trackable.ErrConflictingChange)
		}
		seen[id] = struct{}{}
		return nil
	}

	for _, value := range diff.Added {
		id := value.TrackableID()
		if err := visit(id); err != nil {
			return err
		}
		// Reuse is checked first: a retired identity is reported as
		// reuse even though it is also not live.
		if _, retired := r.retired[id]; retired {
			return r.violation(id, ErrIdentityReuseViolation)
		}
		if _, live := r.live[id]; live {
			return r.violation(id, ErrDuplicateAdd)
		}
	}
	for _, value := range diff.Updated {
		id := value.TrackableID()
		if err := visit(id); err != nil {
			return err
		}
		if _, retired := r.retired[id]; retired {
			return r.violation(id, ErrIdentityReuseViolation)
		}
		if _, live := r.live[id]; !live {
			return r.violation(id, ErrUpdateOfUnknownIdentity)
		}
	}
	for _, id := range diff.Removed {
		if err := visit(id); err != nil {
			return err
		}
		if _, live := r.live[id]; !live {
			return r.violation(id, ErrRemoveOfUnknownIdentity)
		}
	}
	return nil
}

func (r *Registry[T]) violation(id trackable.Identity, err error) error {
	return &ViolationError{Kind: r.kind, ID: id, Err: err}
}

// Get returns the live trackable with the given identity.
func (r *Registry[T]) Get(id trackable.Identity) (T, bool) {
	value, ok := r.live[id]
	return value, ok
}

// Contains reports whether id is live.
func (r *Registry[T]) Contains(id trackable.Identity) bool {
	_, ok := r.live[id]
	return ok
}

// Retired reports whether id was removed.
func (r *Registry[T]) Retired(id trackable.Identity) bool {
	_, ok := r.retired[id]
	return ok
}

// Len returns the number of live trackables.
func (r *Registry[T]) Len() int { return len(r.live) }

// All returns the live trackables ordered by identity.
func (r *Registry[T]) All() []T {
	ids := slices.SortedFunc(maps.Keys(r.live), trackable.Identity.Compare)
	values := make([]T, len(ids))
	for i, id := range ids {
		values[i] = r.live[id]
	}
	return values
}

// Reset forgets every live and retired identity and returns the
// trackables that were live, as removals.
func (r *Registry[T]) Reset() Changes[T] {
	changes := Changes[T]{Removed: r.All()}
	clear(r.live)
	clear(r.retired)
	return changes
}
