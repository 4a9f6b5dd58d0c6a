// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"fmt"
	"sync"

	"github.com/bureau-foundation/capturetrack/lib/trackable"
)

// Encoder contributes one kind's section to each snapshot. The set of
// implementations is closed: one per [Kind], all defined in this
// package.
type Encoder interface {
	// Kind returns the section this encoder fills.
	Kind() Kind

	// Initialize prepares the encoder for a new recording session,
	// discarding any state from a previous one.
	Initialize() error

	// Encode writes the encoder's pending change into s, or leaves
	// the section nil when nothing changed.
	Encode(s *Snapshot)

	// PostEncode clears the change that the last Encode reported.
	PostEncode()

	// Dispose releases session state.
	Dispose()
}

// diffEncoder is the shared implementation of the trackable kinds.
// mu is held across each accumulator change and its payload write, and
// across the Peek in section, so a payload is retired together with the
// change that reported it.
type diffEncoder[T trackable.Record] struct {
	mu       sync.Mutex
	changes  *trackable.Accumulator[T]
	payloads map[trackable.Identity]pendingPayload
	// generation counts payload writes; reported is its value at the
	// last section.
	generation uint64
	reported   uint64
}

type pendingPayload struct {
	data       []byte
	generation uint64
}

func newDiffEncoder[T trackable.Record]() diffEncoder[T] {
	return diffEncoder[T]{changes: trackable.NewAccumulator[T]()}
}

func (e *diffEncoder[T]) Initialize() error {
	e.reset()
	return nil
}

func (e *diffEncoder[T]) PostEncode() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.changes.Commit()
	for id, p := range e.payloads {
		if p.generation <= e.reported {
			delete(e.payloads, id)
		}
	}
}

func (e *diffEncoder[T]) Dispose() {
	e.reset()
}

func (e *diffEncoder[T]) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.changes.Reset()
	e.payloads = nil
	e.generation = 0
	e.reported = 0
}

// Add reports a newly detected trackable.
func (e *diffEncoder[T]) Add(value T) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changes.Add(value)
}

// Update reports a new value for a tracked trackable.
func (e *diffEncoder[T]) Update(value T) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changes.Update(value)
}

// Remove reports that a trackable is gone for good.
func (e *diffEncoder[T]) Remove(id trackable.Identity) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.changes.Remove(id); err != nil {
		return err
	}
	delete(e.payloads, id)
	return nil
}

// AddWithPayload reports a new trackable together with its
// variable-size data.
func (e *diffEncoder[T]) AddWithPayload(value T, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.changes.Add(value); err != nil {
		return err
	}
	e.setPayloadLocked(value.TrackableID(), data)
	return nil
}

// UpdateWithPayload reports a new value and new variable-size data for
// a tracked trackable.
func (e *diffEncoder[T]) UpdateWithPayload(value T, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.changes.Update(value); err != nil {
		return err
	}
	e.setPayloadLocked(value.TrackableID(), data)
	return nil
}

func (e *diffEncoder[T]) setPayloadLocked(id trackable.Identity, data []byte) {
	if e.payloads == nil {
		e.payloads = make(map[trackable.Identity]pendingPayload)
	}
	e.generation++
	e.payloads[id] = pendingPayload{data: data, generation: e.generation}
}

func (e *diffEncoder[T]) section() *Section[T] {
	e.mu.Lock()
	defer e.mu.Unlock()

	diff := e.changes.Peek()
	e.reported = e.generation
	if !diff.IsAvailable() {
		return nil
	}
	section := &Section[T]{Diff: diff}
	attach := func(records []T) {
		for _, record := range records {
			id := record.TrackableID()
			if p, ok := e.payloads[id]; ok {
				if section.Payloads == nil {
					section.Payloads = make(map[trackable.Identity][]byte)
				}
				section.Payloads[id] = p.data
			}
		}
	}
	attach(diff.Added)
	attach(diff.Updated)
	return section
}

// PlaneEncoder reports detected planes.
type PlaneEncoder struct {
	diffEncoder[trackable.Plane]
}

// NewPlaneEncoder returns an empty PlaneEncoder.
func NewPlaneEncoder() *PlaneEncoder {
	return &PlaneEncoder{diffEncoder: newDiffEncoder[trackable.Plane]()}
}

// Kind implements Encoder.
func (e *PlaneEncoder) Kind() Kind { return KindPlanes }

// Encode implements Encoder.
func (e *PlaneEncoder) Encode(s *Snapshot) { s.Planes = e.section() }

// MeshEncoder reports mesh chunks and their geometry.
type MeshEncoder struct {
	diffEncoder[trackable.MeshInfo]
}

// NewMeshEncoder returns an empty MeshEncoder.
func NewMeshEncoder() *MeshEncoder {
	return &MeshEncoder{diffEncoder: newDiffEncoder[trackable.MeshInfo]()}
}

// Kind implements Encoder.
func (e *MeshEncoder) Kind() Kind { return KindMeshes }

// Encode implements Encoder.
func (e *MeshEncoder) Encode(s *Snapshot) { s.Meshes = e.section() }

// AddMesh reports a new mesh chunk. VertexCount and IndexCount of info
// are filled from the geometry.
func (e *MeshEncoder) AddMesh(info trackable.MeshInfo, vertices []trackable.Vertex, indices []uint32) error {
	payload, err := meshPayload(&info, vertices, indices)
	if err != nil {
		return err
	}
	return e.AddWithPayload(info, payload)
}

// UpdateMesh reports new geometry for a tracked mesh chunk.
func (e *MeshEncoder) UpdateMesh(info trackable.MeshInfo, vertices []trackable.Vertex, indices []uint32) error {
	payload, err := meshPayload(&info, vertices, indices)
	if err != nil {
		return err
	}
	return e.UpdateWithPayload(info, payload)
}

func meshPayload(info *trackable.MeshInfo, vertices []trackable.Vertex, indices []uint32) ([]byte, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("mesh %s: index count %d is not a multiple of 3", info.ID, len(indices))
	}
	info.VertexCount = uint32(len(vertices))
	info.IndexCount = uint32(len(indices))
	return EncodeMeshGeometry(vertices, indices)
}

// StreetscapeEncoder reports streetscape geometry. The mesh blob is
// opaque to this package.
type StreetscapeEncoder struct {
	diffEncoder[trackable.StreetscapeGeometry]
}

// NewStreetscapeEncoder returns an empty StreetscapeEncoder.
func NewStreetscapeEncoder() *StreetscapeEncoder {
	return &StreetscapeEncoder{diffEncoder: newDiffEncoder[trackable.StreetscapeGeometry]()}
}

// Kind implements Encoder.
func (e *StreetscapeEncoder) Kind() Kind { return KindStreetscape }

// Encode implements Encoder.
func (e *StreetscapeEncoder) Encode(s *Snapshot) { s.Streetscape = e.section() }

// PointCloudEncoder reports feature point clouds.
type PointCloudEncoder struct {
	diffEncoder[trackable.PointCloud]
}

// NewPointCloudEncoder returns an empty PointCloudEncoder.
func NewPointCloudEncoder() *PointCloudEncoder {
	return &PointCloudEncoder{diffEncoder: newDiffEncoder[trackable.PointCloud]()}
}

// Kind implements Encoder.
func (e *PointCloudEncoder) Kind() Kind { return KindPointClouds }

// Encode implements Encoder.
func (e *PointCloudEncoder) Encode(s *Snapshot) { s.PointClouds = e.section() }

// AddCloud reports a new point cloud with its samples.
func (e *PointCloudEncoder) AddCloud(cloud trackable.PointCloud, points []trackable.Point) error {
	cloud.PointCount = uint32(len(points))
	return e.AddWithPayload(cloud, EncodePoints(points))
}

// UpdateCloud reports new samples for a tracked point cloud.
func (e *PointCloudEncoder) UpdateCloud(cloud trackable.PointCloud, points []trackable.Point) error {
	cloud.PointCount = uint32(len(points))
	return e.UpdateWithPayload(cloud, EncodePoints(points))
}

// GeospatialEncoder reports the geospatial state whenever it differs
// from the last reported value.
type GeospatialEncoder struct {
	mu       sync.Mutex
	current  GeospatialState
	reported GeospatialState
	dirty    bool

	// emitted is the state the last Encode put into a snapshot. Only
	// that state becomes reported on PostEncode; a later Update stays
	// dirty.
	emitted    GeospatialState
	emittedSet bool
}

// NewGeospatialEncoder returns a GeospatialEncoder with nothing to
// report.
func NewGeospatialEncoder() *GeospatialEncoder {
	return &GeospatialEncoder{}
}

// Kind implements Encoder.
func (e *GeospatialEncoder) Kind() Kind { return KindGeospatial }

// Initialize implements Encoder.
func (e *GeospatialEncoder) Initialize() error {
	e.Dispose()
	return nil
}

// Update sets the current geospatial state.
func (e *GeospatialEncoder) Update(state GeospatialState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = state
	e.dirty = state != e.reported
}

// Encode implements Encoder.
func (e *GeospatialEncoder) Encode(s *Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.dirty {
		s.Geospatial = nil
		e.emittedSet = false
		return
	}
	state := e.current
	s.Geospatial = &state
	e.emitted, e.emittedSet = state, true
}

// PostEncode implements Encoder.
func (e *GeospatialEncoder) PostEncode() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.emittedSet {
		return
	}
	e.reported = e.emitted
	e.emittedSet = false
	e.dirty = e.current != e.reported
}

// Dispose implements Encoder.
func (e *GeospatialEncoder) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = GeospatialState{}
	e.reported = GeospatialState{}
	e.emitted = GeospatialState{}
	e.dirty, e.emittedSet = false, false
}

var (
	_ Encoder = (*PlaneEncoder)(nil)
	_ Encoder = (*MeshEncoder)(nil)
	_ Encoder = (*GeospatialEncoder)(nil)
	_ Encoder = (*StreetscapeEncoder)(nil)
	_ Encoder = (*PointCloudEncoder)(nil)
)
