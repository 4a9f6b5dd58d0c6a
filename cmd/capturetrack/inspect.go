// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/capturetrack/lib/codec"
	"github.com/bureau-foundation/capturetrack/lib/metatrack"
	"github.com/bureau-foundation/capturetrack/lib/trackfile"
)

type inspectSummary struct {
	Path          string           `json:"path"`
	Header        metatrack.Header `json:"header"`
	Records       int              `json:"records"`
	Truncated     bool             `json:"truncated"`
	FirstTime     float64          `json:"first_time"`
	LastTime      float64          `json:"last_time"`
	MetadataBytes int64            `json:"metadata_bytes"`
	StoredBytes   int64            `json:"stored_bytes"`
	PixelBytes    int64            `json:"pixel_bytes"`
	MissingPixels int              `json:"missing_pixels"`
	ByCompression map[string]int   `json:"by_compression"`
	MaxRecordSize int              `json:"max_record_size"`
}

func (a *app) inspectCommand() *command {
	var (
		common     commonFlags
		outputJSON bool
		showCBOR   bool
	)
	return &command{
		name:    "inspect",
		summary: "Show a recording's header and record statistics",
		usage:   "capturetrack inspect FILE [flags]",
		examples: []example{
			{description: "Summarize a recording", command: "capturetrack inspect session.ctrk"},
			{description: "Show the header in CBOR diagnostic notation", command: "capturetrack inspect session.ctrk --cbor"},
		},
		flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			common.register(flagSet)
			flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
			flagSet.BoolVar(&showCBOR, "cbor", false, "print the stored header in CBOR diagnostic notation")
			return flagSet
		},
		run: func(args []string) error {
			if err := requireArgs(args, 1, "capturetrack inspect FILE"); err != nil {
				return err
			}
			if _, _, err := common.load(a); err != nil {
				return err
			}
			reader, err := trackfile.Open(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			if showCBOR {
				diagnostic, err := codec.Diagnose(reader.RawHeader())
				if err != nil {
					return fmt.Errorf("header diagnostic: %w", err)
				}
				fmt.Fprintln(a.stdout, diagnostic)
				return nil
			}

			summary := summarize(reader)
			if outputJSON {
				encoder := json.NewEncoder(a.stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(summary)
			}
			printSummary(a.stdout, newStyles(a.stdout), summary)
			return nil
		},
	}
}

func summarize(reader *trackfile.Reader) inspectSummary {
	stats := reader.Stats()
	byCompression := make(map[string]int, len(stats.ByCompression))
	for compression, count := range stats.ByCompression {
		byCompression[compression.String()] = count
	}
	return inspectSummary{
		Path:          reader.Path(),
		Header:        reader.Header(),
		Records:       stats.Records,
		Truncated:     stats.Truncated,
		FirstTime:     stats.FirstTime,
		LastTime:      stats.LastTime,
		MetadataBytes: stats.MetadataBytes,
		StoredBytes:   stats.StoredBytes,
		PixelBytes:    stats.PixelBytes,
		MissingPixels: stats.MissingPixels,
		ByCompression: byCompression,
		MaxRecordSize: reader.BufferSize(),
	}
}

func printSummary(w io.Writer, style styles, summary inspectSummary) {
	row := func(label, format string, args ...any) {
		fmt.Fprintf(w, "%s %s\n", style.label.Render(label), fmt.Sprintf(format, args...))
	}
	header := summary.Header

	fmt.Fprintln(w, style.title.Render(summary.Path))
	row("version", "%s", header.Version)
	row("recording id", "%s", header.RecordingID)
	if header.Producer != "" {
		row("producer", "%s", header.Producer)
	}
	row("model", "%s", header.ModelName)
	row("screen", "%dx%d", header.ScreenWidth, header.ScreenHeight)
	row("encoders", "%s", strings.Join(header.EncoderNames, ", "))
	row("target frame rate", "%g", header.TargetFrameRate)
	row("compression", "%s", header.Compression)

	records := fmt.Sprint(summary.Records)
	if summary.Truncated {
		records += " " + style.bad.Render("(truncated trailing record dropped)")
	}
	row("records", "%s", records)
	if summary.Records > 0 {
		row("span", "%.3fs to %.3fs", summary.FirstTime, summary.LastTime)
	}
	ratio := 1.0
	if summary.StoredBytes > 0 {
		ratio = float64(summary.MetadataBytes) / float64(summary.StoredBytes)
	}
	row("metadata", "%d bytes, %d stored %s", summary.MetadataBytes, summary.StoredBytes,
		style.dim.Render(fmt.Sprintf("(%.2fx)", ratio)))
	row("largest record", "%d bytes", summary.MaxRecordSize)
	row("pixels", "%d bytes", summary.PixelBytes)
	if summary.MissingPixels > 0 {
		row("missing pixels", "%s", style.bad.Render(fmt.Sprint(summary.MissingPixels)))
	}

	names := make([]string, 0, len(summary.ByCompression))
	for name := range summary.ByCompression {
		names = append(names, name)
	}
	slices.Sort(names)
	var parts []string
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, summary.ByCompression[name]))
	}
	row("stored as", "%s", strings.Join(parts, " "))
}
