// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/capturetrack/lib/clock"
	"github.com/bureau-foundation/capturetrack/lib/playback"
	"github.com/bureau-foundation/capturetrack/lib/trackable"
	"github.com/bureau-foundation/capturetrack/lib/trackfile"
)

// changeCounts tallies one kind's published changes.
type changeCounts struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Live    int `json:"live"`
}

type replayReport struct {
	Steps      int                      `json:"steps"`
	Frames     int                      `json:"frames"`
	Errors     int                      `json:"errors"`
	Geospatial int                      `json:"geospatial_updates"`
	Kinds      map[string]*changeCounts `json:"kinds"`
	Stats      playback.Stats           `json:"stats"`
}

func countInto[T trackable.Record](observers *playback.Observers[playback.TrackableUpdate[T]], counts *changeCounts) {
	observers.Subscribe(func(update playback.TrackableUpdate[T]) {
		counts.Added += len(update.Changes.Added)
		counts.Updated += len(update.Changes.Updated)
		counts.Removed += len(update.Changes.Removed)
	})
}

func (a *app) replayCommand() *command {
	var (
		common     commonFlags
		fps        float64
		realtime   bool
		outputJSON bool
	)
	return &command{
		name:    "replay",
		summary: "Run a recording through the replayer and count the changes it publishes",
		description: "Step playback time from the first record to the last at --fps and feed\n" +
			"every snapshot through the trackable registries, as a simulated sensing\n" +
			"backend would. Identity-protocol violations are reported and skipped.\n" +
			"With --realtime the steps are paced by the wall clock.",
		usage: "capturetrack replay FILE [flags]",
		flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("replay", pflag.ContinueOnError)
			common.register(flagSet)
			flagSet.Float64Var(&fps, "fps", 0, "playback steps per second (default: playback.frame_rate from config)")
			flagSet.BoolVar(&realtime, "realtime", false, "pace steps with the wall clock")
			flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
			return flagSet
		},
		run: func(args []string) error {
			if err := requireArgs(args, 1, "capturetrack replay FILE"); err != nil {
				return err
			}
			cfg, logger, err := common.load(a)
			if err != nil {
				return err
			}
			if fps == 0 {
				fps = cfg.Playback.FrameRate
			}
			if !finiteRate(fps) {
				return fmt.Errorf("--fps must be positive and finite, got %v", fps)
			}

			reader, err := trackfile.Open(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()
			if cfg.Playback.VerifyDigests {
				if err := reader.Verify(); err != nil {
					return fmt.Errorf("refusing to replay: %w", err)
				}
			}

			header := reader.Header()
			replayer, err := playback.NewReplayer(playback.Config{
				Source: reader.Track(),
				Header: &header,
				Logger: logger,
			})
			if err != nil {
				return err
			}

			var pacer clock.Clock
			if realtime {
				pacer = clock.Real()
			}
			report := runReplay(replayer, reader, fps, pacer)
			if outputJSON {
				encoder := json.NewEncoder(a.stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(report)
			}
			printReport(a.stdout, newStyles(a.stdout), report)
			return nil
		},
	}
}

// runReplay advances replayer from the first record's time to the
// last in steps of 1/fps. When pacer is set each step waits for its
// tick.
func runReplay(replayer *playback.Replayer, reader *trackfile.Reader, fps float64, pacer clock.Clock) replayReport {
	report := replayReport{Kinds: map[string]*changeCounts{
		"planes":       {},
		"meshes":       {},
		"streetscape":  {},
		"point_clouds": {},
	}}
	countInto(&replayer.OnPlanes, report.Kinds["planes"])
	countInto(&replayer.OnMeshes, report.Kinds["meshes"])
	countInto(&replayer.OnStreetscape, report.Kinds["streetscape"])
	countInto(&replayer.OnPointClouds, report.Kinds["point_clouds"])
	replayer.OnFrame.Subscribe(func(playback.FrameEvent) { report.Frames++ })
	replayer.OnGeospatial.Subscribe(func(playback.GeospatialEvent) { report.Geospatial++ })
	replayer.OnError.Subscribe(func(playback.ErrorEvent) { report.Errors++ })

	first, last, ok := reader.Track().Span()
	if ok {
		var ticks <-chan time.Time
		if pacer != nil {
			ticker := pacer.NewTicker(time.Duration(float64(time.Second) / fps))
			defer ticker.Stop()
			ticks = ticker.C
		}
		step := 1 / fps
		for i := 0; ; i++ {
			t := first + float64(i)*step
			if t > last {
				t = last
			}
			replayer.Advance(t)
			report.Steps++
			if t >= last {
				break
			}
			if ticks != nil {
				<-ticks
			}
		}
	}

	report.Kinds["planes"].Live = len(replayer.Planes())
	report.Kinds["meshes"].Live = len(replayer.Meshes())
	report.Kinds["streetscape"].Live = len(replayer.Streetscape())
	report.Kinds["point_clouds"].Live = len(replayer.PointClouds())
	report.Stats = replayer.Stats()
	return report
}

func printReport(w io.Writer, style styles, report replayReport) {
	fmt.Fprintln(w, style.title.Render("replay"))
	fmt.Fprintf(w, "%s %d\n", style.label.Render("steps"), report.Steps)
	fmt.Fprintf(w, "%s %d\n", style.label.Render("records applied"), report.Frames)
	fmt.Fprintf(w, "%s %d\n", style.label.Render("geospatial updates"), report.Geospatial)
	for _, kind := range []string{"planes", "meshes", "streetscape", "point_clouds"} {
		counts := report.Kinds[kind]
		fmt.Fprintf(w, "%s +%d ~%d -%d %s\n", style.label.Render(kind),
			counts.Added, counts.Updated, counts.Removed,
			style.dim.Render(fmt.Sprintf("(%d live)", counts.Live)))
	}
	errorCount := fmt.Sprint(report.Errors)
	if report.Errors > 0 {
		errorCount = style.bad.Render(errorCount)
	}
	fmt.Fprintf(w, "%s %s\n", style.label.Render("errors"), errorCount)
}

// finiteRate reports whether rate is usable as a step frequency.
func finiteRate(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0)
}
