// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package playback

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/capturetrack/lib/metatrack"
	"github.com/bureau-foundation/capturetrack/lib/reconcile"
	"github.com/bureau-foundation/capturetrack/lib/snapshot"
	"github.com/bureau-foundation/capturetrack/lib/trackable"
)

// FrameEvent is published for every applied record.
type FrameEvent struct {
	Index  int
	Time   float64
	Camera snapshot.CameraFrame
	Pose   trackable.Pose
}

// TrackableUpdate is published when a record changes the trackables of
// one kind. Payloads holds the side data recorded for added and
// updated trackables. Reset is set on the removals published when
// replay restarts from the first record.
type TrackableUpdate[T trackable.Record] struct {
	Index    int
	Time     float64
	Changes  reconcile.Changes[T]
	Payloads map[trackable.Identity][]byte
	Reset    bool
}

// GeospatialEvent is published when a record carries a geospatial
// state.
type GeospatialEvent struct {
	Index int
	Time  float64
	State snapshot.GeospatialState
}

// ErrorEvent reports a record that could not be applied in full.
type ErrorEvent struct {
	Index int
	Time  float64
	Err   error
}

// Stats are cumulative counters since the Replayer was created.
type Stats struct {
	// Applied counts records decoded and applied.
	Applied int
	// Undecodable counts records skipped because they did not decode.
	Undecodable int
	// Violations counts diffs rejected by a registry.
	Violations int
	// Resets counts restarts from the first record.
	Resets int
}

// Config configures a Replayer.
type Config struct {
	// Source supplies the records. Required.
	Source Source

	// Header, when set, is validated against the encoders this build
	// can decode before replay starts.
	Header *metatrack.Header

	// Logger receives per-record problems. Nil means slog.Default().
	Logger *slog.Logger
}

// Replayer applies recorded snapshots as playback time advances. Not
// safe for concurrent use; subscribe observers before the first
// Advance.
type Replayer struct {
	OnFrame       Observers[FrameEvent]
	OnPlanes      Observers[TrackableUpdate[trackable.Plane]]
	OnMeshes      Observers[TrackableUpdate[trackable.MeshInfo]]
	OnStreetscape Observers[TrackableUpdate[trackable.StreetscapeGeometry]]
	OnPointClouds Observers[TrackableUpdate[trackable.PointCloud]]
	OnGeospatial  Observers[GeospatialEvent]
	OnError       Observers[ErrorEvent]

	player *Player
	logger *slog.Logger

	planes      *reconcile.Registry[trackable.Plane]
	meshes      *reconcile.Registry[trackable.MeshInfo]
	streetscape *reconcile.Registry[trackable.StreetscapeGeometry]
	pointClouds *reconcile.Registry[trackable.PointCloud]
	geospatial  *snapshot.GeospatialState

	// current is the index of the last applied record, -1 before the
	// first.
	current int
	stats   Stats
}

// NewReplayer returns a Replayer positioned before the first record.
func NewReplayer(config Config) (*Replayer, error) {
	if config.Source == nil {
		return nil, errors.New("playback: Source is required")
	}
	if config.Header != nil {
		if err := config.Header.Validate(snapshot.KindNames()); err != nil {
			return nil, err
		}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Replayer{
		player:      NewPlayer(config.Source),
		logger:      logger,
		planes:      reconcile.NewRegistry[trackable.Plane](snapshot.KindPlanes.String()),
		meshes:      reconcile.NewRegistry[trackable.MeshInfo](snapshot.KindMeshes.String()),
		streetscape: reconcile.NewRegistry[trackable.StreetscapeGeometry](snapshot.KindStreetscape.String()),
		pointClouds: reconcile.NewRegistry[trackable.PointCloud](snapshot.KindPointClouds.String()),
		current:     -1,
	}, nil
}

// Advance moves playback to time and reports whether any record was
// applied. The nearest-preceding record and every record skipped
// since the last Advance are applied in order. Moving to an earlier
// record resets all state and replays from the first record. A time
// before the first record leaves the state unchanged.
func (r *Replayer) Advance(time float64) bool {
	index, ok := r.player.Index(time)
	if !ok || index == r.current {
		return false
	}
	if index < r.current {
		r.Reset()
	}
	for i := r.current + 1; i <= index; i++ {
		r.apply(i)
		r.current = i
	}
	return true
}

// Reset removes every live trackable, publishing the removals, and
// positions the replayer before the first record.
func (r *Replayer) Reset() {
	at := metatrack.Record{Index: r.current}
	if r.current >= 0 {
		at.Time = r.player.Source().Record(r.current).Time
	}
	resetRegistry(r.planes, &r.OnPlanes, at)
	resetRegistry(r.meshes, &r.OnMeshes, at)
	resetRegistry(r.streetscape, &r.OnStreetscape, at)
	resetRegistry(r.pointClouds, &r.OnPointClouds, at)
	r.geospatial = nil
	r.current = -1
	r.stats.Resets++
}

// Current returns the index of the last applied record, or -1.
func (r *Replayer) Current() int { return r.current }

// Planes returns the live planes ordered by identity.
func (r *Replayer) Planes() []trackable.Plane { return r.planes.All() }

// Meshes returns the live meshes ordered by identity.
func (r *Replayer) Meshes() []trackable.MeshInfo { return r.meshes.All() }

// Streetscape returns the live streetscape geometries ordered by
// identity.
func (r *Replayer) Streetscape() []trackable.StreetscapeGeometry { return r.streetscape.All() }

// PointClouds returns the live point clouds ordered by identity.
func (r *Replayer) PointClouds() []trackable.PointCloud { return r.pointClouds.All() }

// Geospatial returns the most recent geospatial state.
func (r *Replayer) Geospatial() (snapshot.GeospatialState, bool) {
	if r.geospatial == nil {
		return snapshot.GeospatialState{}, false
	}
	return *r.geospatial, true
}

// Stats returns the replay counters.
func (r *Replayer) Stats() Stats { return r.stats }

func (r *Replayer) apply(i int) {
	record := r.player.Load(i)
	s, err := snapshot.Unmarshal(record.Data)
	if err != nil {
		r.stats.Undecodable++
		r.fail(record, fmt.Errorf("decoding record: %w", err))
		return
	}
	r.stats.Applied++

	r.OnFrame.Publish(FrameEvent{Index: record.Index, Time: record.Time, Camera: s.Camera, Pose: s.Pose})
	applySection(r, r.planes, s.Planes, &r.OnPlanes, record)
	applySection(r, r.meshes, s.Meshes, &r.OnMeshes, record)
	if s.Geospatial != nil {
		state := *s.Geospatial
		r.geospatial = &state
		r.OnGeospatial.Publish(GeospatialEvent{Index: record.Index, Time: record.Time, State: state})
	}
	applySection(r, r.streetscape, s.Streetscape, &r.OnStreetscape, record)
	applySection(r, r.pointClouds, s.PointClouds, &r.OnPointClouds, record)
}

// applySection applies one kind's diff. A rejected diff is dropped as
// a whole; the registry is left as it was.
func applySection[T trackable.Record](r *Replayer, registry *reconcile.Registry[T], section *snapshot.Section[T], observers *Observers[TrackableUpdate[T]], record metatrack.Record) {
	if section == nil {
		return
	}
	changes, err := registry.Apply(section.Diff)
	if err != nil {
		r.stats.Violations++
		r.fail(record, err)
		return
	}
	if changes.Empty() {
		return
	}
	observers.Publish(TrackableUpdate[T]{
		Index:    record.Index,
		Time:     record.Time,
		Changes:  changes,
		Payloads: section.Payloads,
	})
}

func resetRegistry[T trackable.Record](registry *reconcile.Registry[T], observers *Observers[TrackableUpdate[T]], at metatrack.Record) {
	changes := registry.Reset()
	if changes.Empty() {
		return
	}
	observers.Publish(TrackableUpdate[T]{Index: at.Index, Time: at.Time, Changes: changes, Reset: true})
}

func (r *Replayer) fail(record metatrack.Record, err error) {
	r.logger.Warn("skipping recorded change",
		"index", record.Index,
		"time", record.Time,
		"error", err,
	)
	r.OnError.Publish(ErrorEvent{Index: record.Index, Time: record.Time, Err: err})
}
