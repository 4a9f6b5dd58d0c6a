// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metatrack

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// FormatVersion identifies the per-frame record layout. Recordings with
// a different version cannot be decoded by this build.
const FormatVersion = "capture-metadata/1"

// ErrIncompatible is returned by Header.Validate for a recording this
// build cannot decode.
var ErrIncompatible = errors.New("recording is incompatible with this build")

// Header describes a recording. It is written once at the start of the
// file. JSON tags double as CBOR keys.
type Header struct {
	Version      string   `json:"version"`
	ModelName    string   `json:"model_name"`
	ScreenWidth  int      `json:"screen_width"`
	ScreenHeight int      `json:"screen_height"`
	EncoderNames []string `json:"encoder_names"`

	RecordingID     uuid.UUID `json:"recording_id"`
	Producer        string    `json:"producer,omitempty"`
	TargetFrameRate float64   `json:"target_frame_rate,omitempty"`
	// Compression is the default record compression the writer was
	// configured with. Each record carries its own tag.
	Compression string `json:"compression,omitempty"`
}

// Validate checks that the recording can be decoded: the format
// version must match and every encoder name must be known. Errors wrap
// ErrIncompatible.
func (h *Header) Validate(known []string) error {
	if h.Version != FormatVersion {
		return fmt.Errorf("%w: format version %q, want %q", ErrIncompatible, h.Version, FormatVersion)
	}
	var unknown []string
	for _, name := range h.EncoderNames {
		if !slices.Contains(known, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: unknown encoders %v", ErrIncompatible, unknown)
	}
	if h.ScreenWidth < 0 || h.ScreenHeight < 0 {
		return fmt.Errorf("%w: negative screen size %dx%d", ErrIncompatible, h.ScreenWidth, h.ScreenHeight)
	}
	return nil
}
