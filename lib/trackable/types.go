// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackable

// Vector3 is an x, y, z triple in session space (meters).
type Vector3 [3]float32

// Quaternion is a rotation stored as x, y, z, w.
type Quaternion [4]float32

// IdentityRotation is the rotation that leaves vectors unchanged.
var IdentityRotation = Quaternion{0, 0, 0, 1}

// Matrix4x4 is a 4x4 matrix in column-major order.
type Matrix4x4 [16]float32

// IdentityMatrix is the 4x4 identity matrix.
var IdentityMatrix = Matrix4x4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// Pose is a position and orientation.
type Pose struct {
	Position Vector3
	Rotation Quaternion
}

// TrackingState reports how confidently a trackable is being tracked.
type TrackingState uint8

const (
	TrackingNone TrackingState = iota
	TrackingLimited
	TrackingTracking
)

// String returns the lowercase name of the state.
func (s TrackingState) String() string {
	switch s {
	case TrackingNone:
		return "none"
	case TrackingLimited:
		return "limited"
	case TrackingTracking:
		return "tracking"
	default:
		return "unknown"
	}
}

// Record is implemented by every trackable record type. Implementations
// must be fixed-layout values (see lib/wire).
type Record interface {
	TrackableID() Identity
}

// PlaneAlignment describes the orientation of a detected plane.
type PlaneAlignment uint8

const (
	PlaneAlignmentNone PlaneAlignment = iota
	PlaneAlignmentHorizontalUp
	PlaneAlignmentHorizontalDown
	PlaneAlignmentVertical
	PlaneAlignmentNotAxisAligned
)

// PlaneClassification is the semantic label a sensor assigned to a plane.
type PlaneClassification uint8

const (
	PlaneClassificationNone PlaneClassification = iota
	PlaneClassificationWall
	PlaneClassificationFloor
	PlaneClassificationCeiling
	PlaneClassificationTable
	PlaneClassificationSeat
	PlaneClassificationDoor
	PlaneClassificationWindow
)

// Plane is a detected planar surface.
type Plane struct {
	ID Identity
	// SubsumedBy is the plane that absorbed this one, or zero.
	SubsumedBy     Identity
	Pose           Pose
	Center         Vector3
	Extents        [2]float32
	TrackingState  TrackingState
	Alignment      PlaneAlignment
	Classification PlaneClassification
	_              uint8
}

// TrackableID implements Record.
func (p Plane) TrackableID() Identity { return p.ID }

// MeshInfo describes one mesh chunk. Its geometry travels separately as
// a payload (see [Vertex]); VertexCount and IndexCount describe that
// payload.
type MeshInfo struct {
	ID            Identity
	Pose          Pose
	TrackingState TrackingState
	_             [3]uint8
	VertexCount   uint32
	IndexCount    uint32
}

// TrackableID implements Record.
func (m MeshInfo) TrackableID() Identity { return m.ID }

// StreetscapeGeometryType distinguishes building and terrain geometry.
type StreetscapeGeometryType uint8

const (
	StreetscapeTerrain StreetscapeGeometryType = iota
	StreetscapeBuilding
)

// StreetscapeQuality is the level of detail of a building mesh.
type StreetscapeQuality uint8

const (
	StreetscapeQualityNone StreetscapeQuality = iota
	StreetscapeQualityLOD1
	StreetscapeQualityLOD2
)

// StreetscapeGeometry is a geospatially anchored building or terrain
// mesh. The mesh itself is an externally serialized blob carried as the
// record's payload.
type StreetscapeGeometry struct {
	ID            Identity
	Pose          Pose
	Type          StreetscapeGeometryType
	Quality       StreetscapeQuality
	TrackingState TrackingState
	_             uint8
}

// TrackableID implements Record.
func (g StreetscapeGeometry) TrackableID() Identity { return g.ID }

// PointCloud is a set of feature points. The points travel as the
// record's payload (see [Point]).
type PointCloud struct {
	ID            Identity
	Pose          Pose
	TrackingState TrackingState
	_             [3]uint8
	PointCount    uint32
}

// TrackableID implements Record.
func (c PointCloud) TrackableID() Identity { return c.ID }

// Vertex is one mesh vertex.
type Vertex struct {
	Position Vector3
	Normal   Vector3
}

// Point is one feature point of a point cloud.
type Point struct {
	Position   Vector3
	Confidence float32
	ID         uint64
}
