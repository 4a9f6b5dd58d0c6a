// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackable

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrIdentityReuse is returned by Accumulator.Add for an identity
	// that was removed earlier in the session.
	ErrIdentityReuse = errors.New("identity was already removed and cannot be reintroduced")

	// ErrAlreadyTracked is returned by Accumulator.Add for an identity
	// that is already live.
	ErrAlreadyTracked = errors.New("identity is already tracked")

	// ErrUnknownIdentity is returned by Accumulator.Update and
	// Accumulator.Remove for an identity that was never added.
	ErrUnknownIdentity = errors.New("identity is not tracked")
)

type change uint8

const (
	changeNone change = iota
	changeDropped
	changeAdded
	changeUpdated
	changeRemoved
)

type pendingChange[T Record] struct {
	id     Identity
	change change
	value  T

	// peeked is the change reported by the last Peek, and modified
	// records whether the entry changed since then.
	peeked   change
	modified bool
}

// Accumulator folds the add/update/remove callbacks of one trackable
// kind into the next DiffSet. Within one window:
//
//   - add then update reports a single add carrying the latest value
//   - add then remove reports nothing
//   - update then remove reports only the removal
//
// Lists keep the order in which identities first changed.
//
// Safe for concurrent use. Mutations that land between Peek and Commit
// stay pending: Commit only retires what the last Peek reported.
type Accumulator[T Record] struct {
	mu      sync.Mutex
	pending []pendingChange[T]
	index   map[Identity]int
	// tracked holds identities whose add has already been taken.
	tracked map[Identity]struct{}
	retired map[Identity]struct{}
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator[T Record]() *Accumulator[T] {
	return &Accumulator[T]{
		index:   make(map[Identity]int),
		tracked: make(map[Identity]struct{}),
		retired: make(map[Identity]struct{}),
	}
}

// Add records a newly detected trackable.
func (a *Accumulator[T]) Add(value T) error {
	id := value.TrackableID()
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, retired := a.retired[id]; retired {
		return fmt.Errorf("adding %s: %w", id, ErrIdentityReuse)
	}
	if _, live := a.tracked[id]; live {
		return fmt.Errorf("adding %s: %w", id, ErrAlreadyTracked)
	}
	if _, pending := a.index[id]; pending {
		return fmt.Errorf("adding %s: %w", id, ErrAlreadyTracked)
	}
	a.index[id] = len(a.pending)
	a.pending = append(a.pending, pendingChange[T]{id: id, change: changeAdded, value: value})
	return nil
}

// Update records a new value for a live trackable.
func (a *Accumulator[T]) Update(value T) error {
	id := value.TrackableID()
	a.mu.Lock()
	defer a.mu.Unlock()

	if i, pending := a.index[id]; pending {
		if a.pending[i].change == changeRemoved {
			return fmt.Errorf("updating %s: %w", id, ErrUnknownIdentity)
		}
		// Either a pending add or a pending update; both keep their
		// kind and take the newer value.
		a.pending[i].value = value
		a.pending[i].modified = true
		return nil
	}
	if _, live := a.tracked[id]; !live {
		return fmt.Errorf("updating %s: %w", id, ErrUnknownIdentity)
	}
	a.index[id] = len(a.pending)
	a.pending = append(a.pending, pendingChange[T]{id: id, change: changeUpdated, value: value})
	return nil
}

// Remove records that a trackable is gone. The identity is retired and
// can never be added again.
func (a *Accumulator[T]) Remove(id Identity) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i, pending := a.index[id]; pending {
		entry := &a.pending[i]
		if entry.change == changeRemoved {
			return fmt.Errorf("removing %s: %w", id, ErrUnknownIdentity)
		}
		entry.modified = true
		if entry.change == changeAdded {
			// Never reported, so nothing downstream needs to hear
			// about it.
			entry.change = changeDropped
			delete(a.index, id)
		} else {
			entry.change = changeRemoved
			var zero T
			entry.value = zero
			delete(a.tracked, id)
		}
		a.retired[id] = struct{}{}
		return nil
	}
	if _, live := a.tracked[id]; !live {
		return fmt.Errorf("removing %s: %w", id, ErrUnknownIdentity)
	}
	delete(a.tracked, id)
	a.retired[id] = struct{}{}
	a.index[id] = len(a.pending)
	a.pending = append(a.pending, pendingChange[T]{id: id, change: changeRemoved})
	return nil
}

// Pending reports whether any change is waiting to be taken.
func (a *Accumulator[T]) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.index) > 0
}

// Peek returns the pending DiffSet without consuming it, and marks it
// as the change a following Commit retires.
func (a *Accumulator[T]) Peek() DiffSet[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.pending {
		a.pending[i].peeked = a.pending[i].change
		a.pending[i].modified = false
	}
	return a.buildLocked()
}

// Commit retires the change reported by the last Peek. Identities it
// reported as added become live. Entries changed after that Peek stay
// pending, rewritten relative to what was reported: an add that was
// reported and then updated is pending as an update, and one reported
// and then removed is pending as a removal.
func (a *Accumulator[T]) Commit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commitLocked()
}

// Take is Peek followed by Commit.
func (a *Accumulator[T]) Take() DiffSet[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.pending {
		a.pending[i].peeked = a.pending[i].change
		a.pending[i].modified = false
	}
	diff := a.buildLocked()
	a.commitLocked()
	return diff
}

func (a *Accumulator[T]) commitLocked() {
	kept := a.pending[:0]
	for _, entry := range a.pending {
		if entry.peeked == changeAdded {
			a.tracked[entry.id] = struct{}{}
		}
		if entry.peeked != changeNone && !entry.modified {
			continue
		}
		switch {
		case entry.peeked == changeAdded && entry.change == changeAdded:
			entry.change = changeUpdated
		case entry.peeked == changeAdded && entry.change == changeDropped:
			delete(a.tracked, entry.id)
			entry.change = changeRemoved
			var zero T
			entry.value = zero
		case entry.change == changeDropped:
			continue
		}
		entry.peeked = changeNone
		entry.modified = false
		kept = append(kept, entry)
	}
	clear(a.pending[len(kept):])
	a.pending = kept
	clear(a.index)
	for i, entry := range a.pending {
		if entry.change != changeDropped {
			a.index[entry.id] = i
		}
	}
}

// Tracked returns the number of live identities, not counting adds
// still pending.
func (a *Accumulator[T]) Tracked() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tracked)
}

// Reset forgets everything, including retired identities. Used when a
// new recording session starts.
func (a *Accumulator[T]) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = nil
	clear(a.index)
	clear(a.tracked)
	clear(a.retired)
}

func (a *Accumulator[T]) buildLocked() DiffSet[T] {
	var diff DiffSet[T]
	for _, entry := range a.pending {
		switch entry.change {
		case changeAdded:
			diff.Added = append(diff.Added, entry.value)
		case changeUpdated:
			diff.Updated = append(diff.Updated, entry.value)
		case changeRemoved:
			diff.Removed = append(diff.Removed, entry.id)
		}
	}
	return diff
}
