// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"fmt"

	"github.com/bureau-foundation/capturetrack/lib/trackable"
)

// Kind identifies one optional section of a snapshot. The numeric
// order is the wire order of the sections.
type Kind uint8

const (
	KindPlanes Kind = iota + 1
	KindMeshes
	KindGeospatial
	KindStreetscape
	KindPointClouds
)

// Kinds lists every kind in wire order.
var Kinds = []Kind{KindPlanes, KindMeshes, KindGeospatial, KindStreetscape, KindPointClouds}

// String returns the name recorded in file headers.
func (k Kind) String() string {
	switch k {
	case KindPlanes:
		return "planes"
	case KindMeshes:
		return "meshes"
	case KindGeospatial:
		return "geospatial"
	case KindStreetscape:
		return "streetscape"
	case KindPointClouds:
		return "point_clouds"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ParseKind parses a kind name.
func ParseKind(name string) (Kind, error) {
	for _, kind := range Kinds {
		if kind.String() == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown snapshot kind %q", name)
}

// KindNames returns the names of all kinds in wire order.
func KindNames() []string {
	names := make([]string, len(Kinds))
	for i, kind := range Kinds {
		names[i] = kind.String()
	}
	return names
}

// CameraFrame is the camera state for one captured frame.
type CameraFrame struct {
	TimestampNs int64
	Projection  trackable.Matrix4x4
	Display     trackable.Matrix4x4
}

// EarthState is the availability of geospatial localization.
type EarthState int32

const (
	EarthStateEnabled EarthState = iota
	EarthStateErrorInternal
	EarthStateErrorGeospatialModeDisabled
	EarthStateErrorNotAuthorized
	EarthStateErrorResourceExhausted
	EarthStateErrorUnsupportedDevice
)

// GeospatialState is the earth-relative camera pose. Unlike the other
// kinds it is a single value, reported whenever it changes.
type GeospatialState struct {
	EarthState    EarthState
	TrackingState trackable.TrackingState
	_             [3]uint8
	Latitude      float64
	Longitude     float64
	Altitude      float64
	Heading       float64
	// EunRotation is the camera orientation in the East-Up-North frame.
	EunRotation            trackable.Quaternion
	HorizontalAccuracy     float64
	VerticalAccuracy       float64
	OrientationYawAccuracy float64
}

// Section is one trackable kind's change in a snapshot. Payloads maps
// an identity from Added or Updated to its variable-size data (mesh
// geometry, streetscape mesh blob, point samples). Planes carry no
// payloads.
type Section[T trackable.Record] struct {
	Diff     trackable.DiffSet[T]
	Payloads map[trackable.Identity][]byte
}

// Snapshot is one frame's side-channel payload. Nil sections mean the
// kind did not change this frame.
type Snapshot struct {
	Camera      CameraFrame
	Pose        trackable.Pose
	Planes      *Section[trackable.Plane]
	Meshes      *Section[trackable.MeshInfo]
	Geospatial  *GeospatialState
	Streetscape *Section[trackable.StreetscapeGeometry]
	PointClouds *Section[trackable.PointCloud]
}

// Present returns the kinds carried by s, in wire order.
func (s *Snapshot) Present() []Kind {
	var kinds []Kind
	if s.Planes != nil {
		kinds = append(kinds, KindPlanes)
	}
	if s.Meshes != nil {
		kinds = append(kinds, KindMeshes)
	}
	if s.Geospatial != nil {
		kinds = append(kinds, KindGeospatial)
	}
	if s.Streetscape != nil {
		kinds = append(kinds, KindStreetscape)
	}
	if s.PointClouds != nil {
		kinds = append(kinds, KindPointClouds)
	}
	return kinds
}
