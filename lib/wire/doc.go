// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire encodes fixed-layout values to and from little-endian
// byte spans.
//
// A fixed-layout value is a struct, array, or scalar built only from
// fixed-width numeric fields: no pointers, slices, strings, or maps.
// Every such type has a constant encoded size (its stride), so a slice
// of N values occupies exactly stride×N bytes and is produced or
// consumed with a single bulk call rather than N per-element
// conversions:
//
//	data := wire.AppendSlice(nil, planes)
//	planes, err := wire.DecodeSlice[trackable.Plane](data)
//
// Decoding never attempts a partial read. A single value must be
// exactly its stride; a slice must be an exact multiple of it. Any
// other length fails with [ErrSizeMismatch] and produces no output.
//
// [Reader] walks a buffer made of consecutive sections (fixed values,
// u32 length-prefixed byte ranges) with bounds checking, so a
// truncated record also surfaces as [ErrSizeMismatch].
//
// Padding is expressed with blank (_) fields. They are written as
// zeros and skipped on decode.
package wire
