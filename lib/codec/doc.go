// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is capturetrack's CBOR configuration.
//
// Per-frame snapshots use the fixed little-endian layout of lib/wire,
// because the record format is shared with readers that map records
// straight onto structs. Everything structured and variable (the track
// file header today) is CBOR through this package. The encoder uses
// Core Deterministic Encoding (RFC 8949 §4.2), so the same header
// always produces the same bytes and its digest is stable.
//
//	data, err := codec.Marshal(header)
//	err = codec.Unmarshal(data, &header)
//
// Types serialized both as CBOR and as JSON (the header is also
// printed by the CLI) carry json tags, which the CBOR library falls
// back to. Types implementing encoding.TextMarshaler, such as
// uuid.UUID and trackable.Identity, encode as CBOR text strings.
package codec
