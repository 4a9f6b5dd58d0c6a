// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Capturetrack inspects, verifies and replays capture metadata
// recordings, and records synthetic sessions for testing.
//
// Commands:
//
//	capturetrack inspect FILE          header and record statistics
//	capturetrack dump FILE --at T      one decoded snapshot as JSON
//	capturetrack verify FILE           recompute every record digest
//	capturetrack replay FILE           run the replayer, count changes
//	capturetrack synth OUT --frames N  record a synthetic session
//
// Every command accepts --config; without it the file named by
// CAPTURETRACK_CONFIG is used, and without that the defaults.
package main
