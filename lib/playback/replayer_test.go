// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package playback

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"

	"github.com/bureau-foundation/capturetrack/lib/metatrack"
	"github.com/bureau-foundation/capturetrack/lib/reconcile"
	"github.com/bureau-foundation/capturetrack/lib/snapshot"
	"github.com/bureau-foundation/capturetrack/lib/trackable"
)

func id(lo uint64) trackable.Identity { return trackable.Identity{Lo: lo} }

func plane(lo uint64) trackable.Plane { return trackable.Plane{ID: id(lo)} }

func planeDiff(added []trackable.Plane, removed ...trackable.Identity) *snapshot.Section[trackable.Plane] {
	return &snapshot.Section[trackable.Plane]{Diff: trackable.DiffSet[trackable.Plane]{Added: added, Removed: removed}}
}

func encode(t *testing.T, s *snapshot.Snapshot) []byte {
	t.Helper()
	data, err := snapshot.Marshal(nil, s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}

func newTestReplayer(t *testing.T, records ...[]byte) *Replayer {
	t.Helper()
	replayer, err := NewReplayer(Config{
		Source: trackOf(t, records...),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewReplayer: %v", err)
	}
	return replayer
}

func livePlanes(r *Replayer) []uint64 {
	var ids []uint64
	for _, p := range r.Planes() {
		ids = append(ids, p.ID.Lo)
	}
	return ids
}

// planeLog records every plane update as "+id", "-id" or "!id" (a
// removal published by a reset).
type planeLog struct{ entries []string }

func (l *planeLog) observe(update TrackableUpdate[trackable.Plane]) {
	for _, p := range update.Changes.Added {
		l.entries = append(l.entries, "+"+p.ID.String())
	}
	for _, p := range update.Changes.Removed {
		prefix := "-"
		if update.Reset {
			prefix = "!"
		}
		l.entries = append(l.entries, prefix+p.ID.String())
	}
}

func TestReplayerAppliesSkippedRecordsInOrder(t *testing.T) {
	t.Parallel()
	replayer := newTestReplayer(t,
		encode(t, &snapshot.Snapshot{Planes: planeDiff([]trackable.Plane{plane(1)})}),
		encode(t, &snapshot.Snapshot{Planes: planeDiff([]trackable.Plane{plane(2)})}),
		encode(t, &snapshot.Snapshot{Planes: planeDiff(nil, id(1))}),
	)
	var log planeLog
	replayer.OnPlanes.Subscribe(log.observe)
	var frames []int
	replayer.OnFrame.Subscribe(func(event FrameEvent) { frames = append(frames, event.Index) })

	if !replayer.Advance(2.5) {
		t.Fatal("Advance(2.5) applied nothing")
	}
	if want := []int{0, 1, 2}; !reflect.DeepEqual(frames, want) {
		t.Errorf("frames = %v, want %v", frames, want)
	}
	want := []string{"+" + id(1).String(), "+" + id(2).String(), "-" + id(1).String()}
	if !reflect.DeepEqual(log.entries, want) {
		t.Errorf("plane updates = %v, want %v", log.entries, want)
	}
	if got := livePlanes(replayer); !reflect.DeepEqual(got, []uint64{2}) {
		t.Errorf("live planes = %v, want [2]", got)
	}

	if replayer.Advance(2.9) {
		t.Error("Advance within the same record applied again")
	}
	if replayer.Stats().Applied != 3 {
		t.Errorf("Applied = %d, want 3", replayer.Stats().Applied)
	}
}

func TestReplayerBackwardSeekReplaysFromStart(t *testing.T) {
	t.Parallel()
	replayer := newTestReplayer(t,
		encode(t, &snapshot.Snapshot{Planes: planeDiff([]trackable.Plane{plane(1)})}),
		encode(t, &snapshot.Snapshot{Planes: planeDiff([]trackable.Plane{plane(2)}, id(1))}),
	)
	replayer.Advance(1)
	var log planeLog
	replayer.OnPlanes.Subscribe(log.observe)

	if !replayer.Advance(0.5) {
		t.Fatal("backward seek applied nothing")
	}
	want := []string{"!" + id(2).String(), "+" + id(1).String()}
	if !reflect.DeepEqual(log.entries, want) {
		t.Errorf("plane updates = %v, want %v", log.entries, want)
	}
	if got := livePlanes(replayer); !reflect.DeepEqual(got, []uint64{1}) {
		t.Errorf("live planes = %v, want [1]", got)
	}
	if replayer.Stats().Resets != 1 || replayer.Current() != 0 {
		t.Errorf("Resets = %d, Current = %d", replayer.Stats().Resets, replayer.Current())
	}
}

func TestReplayerHoldsStateBeforeFirstRecord(t *testing.T) {
	t.Parallel()
	replayer := newTestReplayer(t,
		encode(t, &snapshot.Snapshot{Planes: planeDiff([]trackable.Plane{plane(1)})}),
	)
	if replayer.Advance(-0.1) {
		t.Error("Advance before the first record applied something")
	}
	if replayer.Advance(math.NaN()) {
		t.Error("Advance(NaN) applied something")
	}
	if replayer.Current() != -1 {
		t.Errorf("Current() = %d, want -1", replayer.Current())
	}
}

func TestReplayerReportsIdentityReuse(t *testing.T) {
	t.Parallel()
	replayer := newTestReplayer(t,
		encode(t, &snapshot.Snapshot{Planes: planeDiff([]trackable.Plane{plane(1)})}),
		encode(t, &snapshot.Snapshot{Planes: planeDiff(nil, id(1))}),
		encode(t, &snapshot.Snapshot{Planes: planeDiff([]trackable.Plane{plane(1)})}),
		encode(t, &snapshot.Snapshot{Planes: planeDiff([]trackable.Plane{plane(3)})}),
	)
	var errs []ErrorEvent
	replayer.OnError.Subscribe(func(event ErrorEvent) { errs = append(errs, event) })

	replayer.Advance(3)
	if len(errs) != 1 || errs[0].Index != 2 {
		t.Fatalf("errors = %+v, want one at record 2", errs)
	}
	if !errors.Is(errs[0].Err, reconcile.ErrIdentityReuseViolation) {
		t.Errorf("error = %v, want ErrIdentityReuseViolation", errs[0].Err)
	}
	var violation *reconcile.ViolationError
	if !errors.As(errs[0].Err, &violation) || violation.ID != id(1) {
		t.Errorf("error = %#v, want a ViolationError for %s", errs[0].Err, id(1))
	}
	// Identity 1 stays absent; replay continued past the bad record.
	if got := livePlanes(replayer); !reflect.DeepEqual(got, []uint64{3}) {
		t.Errorf("live planes = %v, want [3]", got)
	}
	if replayer.Stats().Violations != 1 {
		t.Errorf("Violations = %d, want 1", replayer.Stats().Violations)
	}
}

func TestReplayerSkipsUndecodableRecord(t *testing.T) {
	t.Parallel()
	good := encode(t, &snapshot.Snapshot{Planes: planeDiff([]trackable.Plane{plane(1)})})
	replayer := newTestReplayer(t, good[:len(good)-3], encode(t, &snapshot.Snapshot{}))
	var errs []ErrorEvent
	replayer.OnError.Subscribe(func(event ErrorEvent) { errs = append(errs, event) })

	if !replayer.Advance(1) {
		t.Fatal("Advance applied nothing")
	}
	if len(errs) != 1 || errs[0].Index != 0 {
		t.Fatalf("errors = %+v, want one at record 0", errs)
	}
	if len(replayer.Planes()) != 0 {
		t.Errorf("truncated record changed state: %v", replayer.Planes())
	}
	if stats := replayer.Stats(); stats.Undecodable != 1 || stats.Applied != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestReplayerEmptyDiffIsNoOp(t *testing.T) {
	t.Parallel()
	replayer := newTestReplayer(t,
		encode(t, &snapshot.Snapshot{Planes: planeDiff([]trackable.Plane{plane(1)})}),
		encode(t, &snapshot.Snapshot{}),
	)
	replayer.Advance(0)
	updates := 0
	replayer.OnPlanes.Subscribe(func(TrackableUpdate[trackable.Plane]) { updates++ })
	replayer.Advance(1)
	if updates != 0 {
		t.Errorf("empty record published %d plane updates", updates)
	}
	if got := livePlanes(replayer); !reflect.DeepEqual(got, []uint64{1}) {
		t.Errorf("live planes = %v, want [1]", got)
	}
}

func TestReplayerForwardsPayloadsAndGeospatial(t *testing.T) {
	t.Parallel()
	geometry, err := snapshot.EncodeMeshGeometry(make([]trackable.Vertex, 3), []uint32{0, 1, 2})
	if err != nil {
		t.Fatalf("EncodeMeshGeometry: %v", err)
	}
	state := snapshot.GeospatialState{EarthState: snapshot.EarthStateEnabled, Latitude: 47.6, Longitude: -122.3}
	replayer := newTestReplayer(t, encode(t, &snapshot.Snapshot{
		Meshes: &snapshot.Section[trackable.MeshInfo]{
			Diff:     trackable.DiffSet[trackable.MeshInfo]{Added: []trackable.MeshInfo{{ID: id(9), VertexCount: 3, IndexCount: 3}}},
			Payloads: map[trackable.Identity][]byte{id(9): geometry},
		},
		Geospatial: &state,
	}))

	var meshUpdate TrackableUpdate[trackable.MeshInfo]
	replayer.OnMeshes.Subscribe(func(update TrackableUpdate[trackable.MeshInfo]) { meshUpdate = update })
	var geospatial []GeospatialEvent
	replayer.OnGeospatial.Subscribe(func(event GeospatialEvent) { geospatial = append(geospatial, event) })

	replayer.Advance(0)
	vertices, indices, err := snapshot.DecodeMeshGeometry(meshUpdate.Payloads[id(9)])
	if err != nil {
		t.Fatalf("DecodeMeshGeometry: %v", err)
	}
	if len(vertices) != 3 || len(indices) != 3 {
		t.Errorf("geometry = %d vertices, %d indices", len(vertices), len(indices))
	}
	if len(geospatial) != 1 || geospatial[0].State != state {
		t.Errorf("geospatial events = %+v", geospatial)
	}
	if got, ok := replayer.Geospatial(); !ok || got != state {
		t.Errorf("Geospatial() = %+v, %v", got, ok)
	}
}

func TestNewReplayerValidatesHeader(t *testing.T) {
	t.Parallel()
	header := metatrack.Header{Version: metatrack.FormatVersion, EncoderNames: []string{"planes", "faces"}}
	_, err := NewReplayer(Config{Source: &metatrack.Track{}, Header: &header})
	if !errors.Is(err, metatrack.ErrIncompatible) {
		t.Errorf("NewReplayer() = %v, want ErrIncompatible", err)
	}

	header.EncoderNames = []string{"planes"}
	if _, err := NewReplayer(Config{Source: &metatrack.Track{}, Header: &header}); err != nil {
		t.Errorf("NewReplayer with known encoders: %v", err)
	}
	if _, err := NewReplayer(Config{}); err == nil {
		t.Error("NewReplayer accepted a nil Source")
	}
}
