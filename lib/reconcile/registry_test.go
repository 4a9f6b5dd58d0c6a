// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/capturetrack/lib/trackable"
)

func plane(lo uint64) trackable.Plane {
	return trackable.Plane{ID: trackable.Identity{Lo: lo}, Extents: [2]float32{float32(lo), 1}}
}

func planeID(lo uint64) trackable.Identity { return trackable.Identity{Lo: lo} }

func TestApplyEmptyDiffIsNoop(t *testing.T) {
	registry := NewRegistry[trackable.Plane]("planes")
	if _, err := registry.Apply(trackable.DiffSet[trackable.Plane]{Added: []trackable.Plane{plane(1)}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	changes, err := registry.Apply(trackable.DiffSet[trackable.Plane]{})
	if err != nil {
		t.Fatalf("Apply(empty): %v", err)
	}
	if !changes.Empty() {
		t.Errorf("empty diff produced changes: %+v", changes)
	}
	if registry.Len() != 1 || !registry.Contains(planeID(1)) {
		t.Error("empty diff changed the registry")
	}
}

func TestApplyLifecycle(t *testing.T) {
	registry := NewRegistry[trackable.Plane]("planes")

	changes, err := registry.Apply(trackable.DiffSet[trackable.Plane]{Added: []trackable.Plane{plane(1), plane(2)}})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(changes.Added) != 2 {
		t.Errorf("Added = %d, want 2", len(changes.Added))
	}

	moved := plane(1)
	moved.Center = trackable.Vector3{5, 0, 0}
	changes, err = registry.Apply(trackable.DiffSet[trackable.Plane]{
		Updated: []trackable.Plane{moved},
		Removed: []trackable.Identity{planeID(2)},
	})
	if err != nil {
		t.Fatalf("update/remove: %v", err)
	}
	if len(changes.Updated) != 1 || changes.Updated[0] != moved {
		t.Errorf("Updated = %+v", changes.Updated)
	}
	if len(changes.Removed) != 1 || changes.Removed[0] != plane(2) {
		t.Errorf("Removed = %+v, want last known value of plane 2", changes.Removed)
	}
	if got, ok := registry.Get(planeID(1)); !ok || got != moved {
		t.Errorf("Get(1) = %+v, %v", got, ok)
	}
	if !registry.Retired(planeID(2)) || registry.Contains(planeID(2)) {
		t.Error("plane 2 should be retired and absent")
	}
}

func TestApplyAddRemoveAddIsReuseViolation(t *testing.T) {
	registry := NewRegistry[trackable.Plane]("planes")
	steps := []trackable.DiffSet[trackable.Plane]{
		{Added: []trackable.Plane{plane(7)}},
		{Removed: []trackable.Identity{planeID(7)}},
	}
	for i, step := range steps {
		if _, err := registry.Apply(step); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	_, err := registry.Apply(trackable.DiffSet[trackable.Plane]{Added: []trackable.Plane{plane(7)}})
	if !errors.Is(err, ErrIdentityReuseViolation) {
		t.Fatalf("re-add error = %v, want ErrIdentityReuseViolation", err)
	}
	var violation *ViolationError
	if !errors.As(err, &violation) || violation.ID != planeID(7) || violation.Kind != "planes" {
		t.Errorf("violation = %+v", violation)
	}
	if registry.Contains(planeID(7)) {
		t.Error("rejected re-add left plane 7 in the registry")
	}
}

func TestApplyViolations(t *testing.T) {
	tests := []struct {
		name string
		diff trackable.DiffSet[trackable.Plane]
		want error
	}{
		{"duplicate add", trackable.DiffSet[trackable.Plane]{Added: []trackable.Plane{plane(1)}}, ErrDuplicateAdd},
		{"update unknown", trackable.DiffSet[trackable.Plane]{Updated: []trackable.Plane{plane(9)}}, ErrUpdateOfUnknownIdentity},
		{"remove unknown", trackable.DiffSet[trackable.Plane]{Removed: []trackable.Identity{planeID(9)}}, ErrRemoveOfUnknownIdentity},
		{"update retired", trackable.DiffSet[trackable.Plane]{Updated: []trackable.Plane{plane(2)}}, ErrIdentityReuseViolation},
		{"remove retired", trackable.DiffSet[trackable.Plane]{Removed: []trackable.Identity{planeID(2)}}, ErrRemoveOfUnknownIdentity},
		{"same id twice", trackable.DiffSet[trackable.Plane]{
			Updated: []trackable.Plane{plane(1)},
			Removed: []trackable.Identity{planeID(1)},
		}, trackable.ErrConflictingChange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry[trackable.Plane]("planes")
			mustApply(t, registry, trackable.DiffSet[trackable.Plane]{Added: []trackable.Plane{plane(1), plane(2)}})
			mustApply(t, registry, trackable.DiffSet[trackable.Plane]{Removed: []trackable.Identity{planeID(2)}})

			if _, err := registry.Apply(tt.diff); !errors.Is(err, tt.want) {
				t.Errorf("Apply() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApplyRejectsWholeDiff(t *testing.T) {
	registry := NewRegistry[trackable.Plane]("planes")
	mustApply(t, registry, trackable.DiffSet[trackable.Plane]{Added: []trackable.Plane{plane(1)}})

	// The add of plane 2 is valid, but the update of plane 9 is not.
	_, err := registry.Apply(trackable.DiffSet[trackable.Plane]{
		Added:   []trackable.Plane{plane(2)},
		Updated: []trackable.Plane{plane(9)},
		Removed: []trackable.Identity{planeID(1)},
	})
	if err == nil {
		t.Fatal("expected violation")
	}
	if registry.Contains(planeID(2)) || !registry.Contains(planeID(1)) || registry.Retired(planeID(1)) {
		t.Error("rejected diff was partially applied")
	}
}

func TestResetReportsRemovals(t *testing.T) {
	registry := NewRegistry[trackable.Plane]("planes")
	mustApply(t, registry, trackable.DiffSet[trackable.Plane]{Added: []trackable.Plane{plane(3), plane(1)}})
	mustApply(t, registry, trackable.DiffSet[trackable.Plane]{Removed: []trackable.Identity{planeID(3)}})

	changes := registry.Reset()
	if len(changes.Removed) != 1 || changes.Removed[0].ID != planeID(1) {
		t.Errorf("Reset removed = %+v", changes.Removed)
	}
	if registry.Len() != 0 || registry.Retired(planeID(3)) {
		t.Error("Reset left state behind")
	}
	// Identities may be reused after a reset (new session).
	mustApply(t, registry, trackable.DiffSet[trackable.Plane]{Added: []trackable.Plane{plane(3)}})
}

func TestAllOrderedByIdentity(t *testing.T) {
	registry := NewRegistry[trackable.Plane]("planes")
	mustApply(t, registry, trackable.DiffSet[trackable.Plane]{Added: []trackable.Plane{plane(5), plane(2), plane(9)}})
	all := registry.All()
	for i, want := range []uint64{2, 5, 9} {
		if all[i].ID != planeID(want) {
			t.Fatalf("All() order = %v", all)
		}
	}
}

func mustApply(t *testing.T, registry *Registry[trackable.Plane], diff trackable.DiffSet[trackable.Plane]) {
	t.Helper()
	if _, err := registry.Apply(diff); err != nil {
		t.Fatalf("Apply(%+v): %v", diff, err)
	}
}
