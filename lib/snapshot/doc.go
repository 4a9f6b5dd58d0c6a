// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot builds and serializes the per-frame side-channel
// payload of a capture.
//
// A [Snapshot] holds the camera frame parameters, the device pose, and
// one optional section per trackable kind that changed since the last
// accepted snapshot. Kinds without changes are nil and cost one byte on
// the wire; an empty diff is never written.
//
// Wire layout (little-endian, see lib/wire):
//
//	CameraFrame   { i64 timestampNs; f32[16] projection; f32[16] display }
//	DevicePose    { f32[3] position; f32[4] rotation }
//	planes        u8 present; [diff]
//	meshes        u8 present; [diff; payloads]
//	geospatial    u8 present; [GeospatialState]
//	streetscape   u8 present; [diff; payloads]
//	point clouds  u8 present; [diff; payloads]
//
//	diff     = { u32 len; added } { u32 len; updated } { u32 len; removed }
//	payloads = u32 count; { Identity; u32 len; bytes }*   (sorted by identity)
//
// Sensors feed per-kind [Encoder] variants. The [Assembler] owns one
// encoder per kind and, once per captured frame, gathers their pending
// changes into a snapshot. Changes are cleared by [Assembler.Commit],
// which the recorder calls only after the snapshot has been accepted
// downstream, so each add/update/remove appears in exactly one written
// snapshot.
package snapshot
