// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/bureau-foundation/capturetrack/lib/config"
	"github.com/bureau-foundation/capturetrack/lib/testutil"
)

// runCLI executes the command line and returns what it wrote to
// stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	a := &app{stdout: &stdout, stderr: io.Discard}
	err := a.root().execute(args, io.Discard)
	return stdout.String(), err
}

func mustRunCLI(t *testing.T, args ...string) string {
	t.Helper()
	output, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("capturetrack %s: %v", strings.Join(args, " "), err)
	}
	return output
}

func decodeJSON[T any](t *testing.T, output string) T {
	t.Helper()
	var value T
	if err := json.Unmarshal([]byte(output), &value); err != nil {
		t.Fatalf("decoding JSON output: %v\n%s", err, output)
	}
	return value
}

func TestSynthesizedRecordingRoundTrip(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	path := testutil.TempPath(t, "synth.ctrk")

	report := decodeJSON[synthReport](t, mustRunCLI(t, "synth", path, "--frames", "120", "--json"))
	if report.Writer.Records == 0 {
		t.Fatal("synth wrote no records")
	}
	if report.Session.Queue.Deduplicated == 0 {
		t.Error("rendering at twice the target rate deduplicated nothing")
	}

	summary := decodeJSON[inspectSummary](t, mustRunCLI(t, "inspect", path, "--json"))
	if summary.Records != report.Writer.Records {
		t.Errorf("inspect records = %d, synth wrote %d", summary.Records, report.Writer.Records)
	}
	if summary.Header.RecordingID.String() != report.RecordingID {
		t.Errorf("inspect recording id = %s, synth reported %s", summary.Header.RecordingID, report.RecordingID)
	}
	if len(summary.Header.EncoderNames) != 5 {
		t.Errorf("encoder names = %v, want all five kinds", summary.Header.EncoderNames)
	}

	if output := mustRunCLI(t, "verify", path); !strings.Contains(output, "ok:") {
		t.Errorf("verify output = %q", output)
	}

	replay := decodeJSON[replayReport](t, mustRunCLI(t, "replay", path, "--json", "--fps", "90"))
	if replay.Frames != summary.Records {
		t.Errorf("replay applied %d records, recording has %d", replay.Frames, summary.Records)
	}
	if replay.Errors != 0 {
		t.Errorf("replay reported %d errors on a clean recording", replay.Errors)
	}
	if replay.Kinds["planes"].Added == 0 || replay.Kinds["meshes"].Added == 0 {
		t.Errorf("replay kinds = planes %+v, meshes %+v", *replay.Kinds["planes"], *replay.Kinds["meshes"])
	}
	if replay.Geospatial == 0 {
		t.Error("replay saw no geospatial updates")
	}

	dump := decodeJSON[map[string]any](t, mustRunCLI(t, "dump", path, "--index", "0"))
	if dump["index"] != float64(0) {
		t.Errorf("dump index = %v", dump["index"])
	}
	if _, ok := dump["planes"]; !ok {
		t.Errorf("first record has no planes section: %v", dump)
	}
	if diagnostic := mustRunCLI(t, "inspect", path, "--cbor"); !strings.Contains(diagnostic, "recording_id") {
		t.Errorf("CBOR diagnostic lacks the header keys: %q", diagnostic)
	}
}

func TestVerifyReportsCorruption(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	path := testutil.TempPath(t, "corrupt.ctrk")
	mustRunCLI(t, "synth", path, "--frames", "30", "--compression", "none")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	output, err := runCLI(t, "verify", path)
	var exit *exitError
	if !errors.As(err, &exit) || exit.ExitCode() != 1 {
		t.Fatalf("verify error = %v, want exit code 1", err)
	}
	if !strings.Contains(output, "corrupt:") {
		t.Errorf("verify output = %q", output)
	}

	if _, err := runCLI(t, "replay", path); err == nil {
		t.Error("replay accepted a corrupt recording with digest verification on")
	}
}

func TestConfigFileSelectsEncoders(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	configPath := testutil.WriteFile(t, "capturetrack.yaml", []byte(`
recording:
  encoders: [planes]
  compression: lz4
  target_frame_rate: 10
logging:
  level: warn
`))
	path := testutil.TempPath(t, "planes.ctrk")
	mustRunCLI(t, "synth", path, "--config", configPath, "--frames", "60")

	summary := decodeJSON[inspectSummary](t, mustRunCLI(t, "inspect", path, "--json", "--config", configPath))
	if len(summary.Header.EncoderNames) != 1 || summary.Header.EncoderNames[0] != "planes" {
		t.Errorf("encoder names = %v, want [planes]", summary.Header.EncoderNames)
	}
	if summary.Header.TargetFrameRate != 10 || summary.Header.Compression != "lz4" {
		t.Errorf("header = %+v", summary.Header)
	}

	invalid := testutil.WriteFile(t, "invalid.yaml", []byte("recording:\n  encoders: [faces]\n"))
	if _, err := runCLI(t, "inspect", path, "--config", invalid); err == nil || !strings.Contains(err.Error(), "faces") {
		t.Errorf("inspect with unknown encoder in config = %v", err)
	}
}

func TestDumpBeforeFirstRecord(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	path := testutil.TempPath(t, "short.ctrk")
	mustRunCLI(t, "synth", path, "--frames", "10")
	if _, err := runCLI(t, "dump", path, "--at", "-1"); err == nil {
		t.Error("dump before the first record succeeded")
	}
}

func TestReplayRejectsUnusableRates(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	path := testutil.TempPath(t, "rates.ctrk")
	mustRunCLI(t, "synth", path, "--frames", "4")
	for _, fps := range []string{"+Inf", "-1", "NaN"} {
		if _, err := runCLI(t, "replay", path, "--fps="+fps); err == nil || !strings.Contains(err.Error(), "--fps") {
			t.Errorf("replay --fps=%s = %v, want an --fps error", fps, err)
		}
	}
	if _, err := runCLI(t, "synth", testutil.TempPath(t, "inf.ctrk"), "--render-fps=+Inf"); err == nil {
		t.Error("synth --render-fps=+Inf succeeded")
	}
}

func TestCommandSuggestions(t *testing.T) {
	if _, err := runCLI(t, "inspekt", "file"); err == nil || !strings.Contains(err.Error(), `did you mean "inspect"`) {
		t.Errorf("unknown command error = %v", err)
	}
	if _, err := runCLI(t, "dump", "file", "--att", "1"); err == nil || !strings.Contains(err.Error(), "--at") {
		t.Errorf("unknown flag error = %v", err)
	}
	if _, err := runCLI(t, "verify"); err == nil {
		t.Error("verify without a file succeeded")
	}
	if output, err := runCLI(t, "version"); err != nil || output == "" {
		t.Errorf("version = %q, %v", output, err)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"replay", "replay", 0},
		{"replya", "replay", 2},
		{"synth", "synthe", 1},
		{"", "dump", 4},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}
