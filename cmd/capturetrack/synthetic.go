// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bureau-foundation/capturetrack/lib/clock"
	"github.com/bureau-foundation/capturetrack/lib/recording"
	"github.com/bureau-foundation/capturetrack/lib/snapshot"
	"github.com/bureau-foundation/capturetrack/lib/trackable"
)

// syntheticSensors moves the camera around a circle of radius 1m, one
// revolution every ten seconds.
type syntheticSensors struct {
	clock clock.Clock
	start time.Time
}

func newSyntheticSensors(c clock.Clock) *syntheticSensors {
	return &syntheticSensors{clock: c, start: c.Now()}
}

func (s *syntheticSensors) elapsed() time.Duration { return s.clock.Now().Sub(s.start) }

func (s *syntheticSensors) CameraFrame() (snapshot.CameraFrame, bool) {
	identity := trackable.Matrix4x4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	// Symmetric perspective, 60 degree vertical field of view, near
	// 0.1m, far 100m.
	const near, far = 0.1, 100.0
	f := float32(1 / math.Tan(math.Pi/6))
	projection := trackable.Matrix4x4{
		f / (16.0 / 9.0), 0, 0, 0,
		0, f, 0, 0,
		0, 0, float32(-(far + near) / (far - near)), -1,
		0, 0, float32(-2 * far * near / (far - near)), 0,
	}
	return snapshot.CameraFrame{
		TimestampNs: s.elapsed().Nanoseconds(),
		Projection:  projection,
		Display:     identity,
	}, true
}

func (s *syntheticSensors) DevicePose() trackable.Pose {
	angle := 2 * math.Pi * s.elapsed().Seconds() / 10
	half := angle / 2
	return trackable.Pose{
		Position: trackable.Vector3{float32(math.Cos(angle)), 1.5, float32(math.Sin(angle))},
		Rotation: trackable.Quaternion{0, float32(math.Sin(half)), 0, float32(math.Cos(half))},
	}
}

var errReadbackClosed = errors.New("readback closed")

// asyncReadback completes requests on a worker goroutine in request
// order, like a GPU readback queue with a fixed number of frames in
// flight. A full queue rejects the request.
type asyncReadback struct {
	width, height int
	failEvery     uint64

	mu       sync.Mutex
	closed   bool
	requests chan readbackRequest
	done     chan struct{}
}

type readbackRequest struct {
	sequence   uint64
	onComplete func(recording.Completion)
}

func newAsyncReadback(width, height, inFlight int, failEvery uint64) *asyncReadback {
	r := &asyncReadback{
		width:     width,
		height:    height,
		failEvery: failEvery,
		requests:  make(chan readbackRequest, inFlight),
		done:      make(chan struct{}),
	}
	go r.work()
	return r
}

func (r *asyncReadback) Request(sequence uint64, onComplete func(recording.Completion)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errReadbackClosed
	}
	select {
	case r.requests <- readbackRequest{sequence: sequence, onComplete: onComplete}:
		return nil
	default:
		return fmt.Errorf("%d readbacks already in flight", cap(r.requests))
	}
}

func (r *asyncReadback) work() {
	defer close(r.done)
	for request := range r.requests {
		completion := recording.Completion{Sequence: request.sequence}
		if r.failEvery > 0 && request.sequence%r.failEvery == 0 {
			completion.Err = fmt.Errorf("synthetic readback failure for frame %d", request.sequence)
		} else {
			completion.Pixels = r.render(request.sequence)
		}
		request.onComplete(completion)
	}
}

// render fills an RGBA frame with a gradient that scrolls with the
// sequence number.
func (r *asyncReadback) render(sequence uint64) []byte {
	pixels := make([]byte, r.width*r.height*4)
	for y := range r.height {
		for x := range r.width {
			offset := (y*r.width + x) * 4
			pixels[offset] = byte(x + int(sequence))
			pixels[offset+1] = byte(y)
			pixels[offset+2] = byte(sequence)
			pixels[offset+3] = 0xff
		}
	}
	return pixels
}

// Close stops the worker after it finishes the queued requests.
func (r *asyncReadback) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.requests)
	}
	r.mu.Unlock()
	<-r.done
}

// syntheticWorld generates trackable changes: planes appear, grow and
// are merged away; mesh chunks are refined; a point cloud is
// resampled; a building appears once; the geospatial fix wanders.
type syntheticWorld struct {
	random *rand.Rand

	planes      *snapshot.PlaneEncoder
	meshes      *snapshot.MeshEncoder
	geospatial  *snapshot.GeospatialEncoder
	streetscape *snapshot.StreetscapeEncoder
	pointClouds *snapshot.PointCloudEncoder

	nextID     uint64
	livePlanes []trackable.Plane
	liveMeshes []trackable.MeshInfo
	cloud      *trackable.PointCloud
}

func newSyntheticWorld(encoders map[snapshot.Kind]snapshot.Encoder, seed uint64) *syntheticWorld {
	world := &syntheticWorld{random: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	world.planes, _ = encoders[snapshot.KindPlanes].(*snapshot.PlaneEncoder)
	world.meshes, _ = encoders[snapshot.KindMeshes].(*snapshot.MeshEncoder)
	world.geospatial, _ = encoders[snapshot.KindGeospatial].(*snapshot.GeospatialEncoder)
	world.streetscape, _ = encoders[snapshot.KindStreetscape].(*snapshot.StreetscapeEncoder)
	world.pointClouds, _ = encoders[snapshot.KindPointClouds].(*snapshot.PointCloudEncoder)
	return world
}

func (w *syntheticWorld) newID(kind snapshot.Kind) trackable.Identity {
	w.nextID++
	return trackable.Identity{Hi: uint64(kind) + 1, Lo: w.nextID}
}

// step applies the changes of render frame n.
func (w *syntheticWorld) step(n int) error {
	return errors.Join(
		w.stepPlanes(n),
		w.stepMeshes(n),
		w.stepGeospatial(n),
		w.stepStreetscape(n),
		w.stepPointClouds(n),
	)
}

func (w *syntheticWorld) stepPlanes(n int) error {
	if w.planes == nil {
		return nil
	}
	if n%20 == 0 {
		plane := trackable.Plane{
			ID:            w.newID(snapshot.KindPlanes),
			Center:        trackable.Vector3{w.random.Float32()*4 - 2, 0, w.random.Float32()*4 - 2},
			Extents:       [2]float32{0.5, 0.5},
			TrackingState: trackable.TrackingTracking,
			Alignment:     trackable.PlaneAlignment(1 + w.random.IntN(3)),
		}
		if err := w.planes.Add(plane); err != nil {
			return err
		}
		w.livePlanes = append(w.livePlanes, plane)
	}
	if n%7 == 0 {
		for i := range w.livePlanes {
			w.livePlanes[i].Extents[0] += 0.05
			w.livePlanes[i].Extents[1] += 0.03
			if err := w.planes.Update(w.livePlanes[i]); err != nil {
				return err
			}
		}
	}
	if n%90 == 89 && len(w.livePlanes) > 1 {
		merged := w.livePlanes[0]
		w.livePlanes = w.livePlanes[1:]
		if err := w.planes.Remove(merged.ID); err != nil {
			return err
		}
	}
	return nil
}

func (w *syntheticWorld) stepMeshes(n int) error {
	if w.meshes == nil {
		return nil
	}
	if n%45 == 0 {
		info := trackable.MeshInfo{ID: w.newID(snapshot.KindMeshes), TrackingState: trackable.TrackingTracking}
		vertices, indices := w.meshChunk(1)
		if err := w.meshes.AddMesh(info, vertices, indices); err != nil {
			return err
		}
		w.liveMeshes = append(w.liveMeshes, info)
	}
	if n%15 == 5 {
		for i, info := range w.liveMeshes {
			vertices, indices := w.meshChunk(1 + n/15)
			if err := w.meshes.UpdateMesh(info, vertices, indices); err != nil {
				return fmt.Errorf("mesh %d: %w", i, err)
			}
		}
	}
	return nil
}

// meshChunk returns a grid of quads, detail quads on a side.
func (w *syntheticWorld) meshChunk(detail int) ([]trackable.Vertex, []uint32) {
	side := detail + 1
	vertices := make([]trackable.Vertex, 0, side*side)
	for z := range side {
		for x := range side {
			vertices = append(vertices, trackable.Vertex{
				Position: trackable.Vector3{float32(x) / float32(detail), w.random.Float32() * 0.01, float32(z) / float32(detail)},
				Normal:   trackable.Vector3{0, 1, 0},
			})
		}
	}
	indices := make([]uint32, 0, detail*detail*6)
	for z := range detail {
		for x := range detail {
			corner := uint32(z*side + x)
			next := corner + uint32(side)
			indices = append(indices, corner, next, corner+1, corner+1, next, next+1)
		}
	}
	return vertices, indices
}

func (w *syntheticWorld) stepGeospatial(n int) error {
	if w.geospatial == nil || n%3 != 0 {
		return nil
	}
	w.geospatial.Update(snapshot.GeospatialState{
		EarthState:         snapshot.EarthStateEnabled,
		TrackingState:      trackable.TrackingTracking,
		Latitude:           47.6205 + float64(n)*1e-7,
		Longitude:          -122.3493 + float64(n)*1e-7,
		Altitude:           56,
		Heading:            math.Mod(float64(n), 360),
		EunRotation:        trackable.Quaternion{0, 0, 0, 1},
		HorizontalAccuracy: 3 / (1 + float64(n)/100),
		VerticalAccuracy:   5,
	})
	return nil
}

func (w *syntheticWorld) stepStreetscape(n int) error {
	if w.streetscape == nil || n != 10 {
		return nil
	}
	building := trackable.StreetscapeGeometry{
		ID:            w.newID(snapshot.KindStreetscape),
		Type:          trackable.StreetscapeBuilding,
		Quality:       trackable.StreetscapeQualityLOD1,
		TrackingState: trackable.TrackingTracking,
	}
	// The building mesh is an opaque blob; a mesh chunk stands in.
	vertices, indices := w.meshChunk(4)
	blob, err := snapshot.EncodeMeshGeometry(vertices, indices)
	if err != nil {
		return err
	}
	return w.streetscape.AddWithPayload(building, blob)
}

func (w *syntheticWorld) stepPointClouds(n int) error {
	if w.pointClouds == nil || n%20 != 0 {
		return nil
	}
	points := make([]trackable.Point, 64+w.random.IntN(64))
	for i := range points {
		points[i] = trackable.Point{
			Position:   trackable.Vector3{w.random.Float32()*4 - 2, w.random.Float32() * 2, w.random.Float32()*4 - 2},
			Confidence: w.random.Float32(),
			ID:         uint64(n)<<16 | uint64(i),
		}
	}
	if w.cloud == nil {
		w.cloud = &trackable.PointCloud{ID: w.newID(snapshot.KindPointClouds), TrackingState: trackable.TrackingTracking}
		return w.pointClouds.AddCloud(*w.cloud, points)
	}
	return w.pointClouds.UpdateCloud(*w.cloud, points)
}
