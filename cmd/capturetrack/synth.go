// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/capturetrack/lib/clock"
	"github.com/bureau-foundation/capturetrack/lib/metatrack"
	"github.com/bureau-foundation/capturetrack/lib/recording"
	"github.com/bureau-foundation/capturetrack/lib/snapshot"
	"github.com/bureau-foundation/capturetrack/lib/trackfile"
)

type synthReport struct {
	Path         string                `json:"path"`
	RecordingID  string                `json:"recording_id"`
	RenderFrames int                   `json:"render_frames"`
	Session      recording.Stats       `json:"session"`
	Writer       trackfile.WriterStats `json:"writer"`
}

func (a *app) synthCommand() *command {
	var (
		common      commonFlags
		frames      int
		renderFPS   float64
		seed        uint64
		width       int
		height      int
		inFlight    int
		failEvery   uint64
		compression string
		encoders    []string
		outputJSON  bool
	)
	return &command{
		name:    "synth",
		summary: "Record a synthetic session",
		description: "Drive a recording session with synthetic sensors, a synthetic world of\n" +
			"trackables and an asynchronous readback, on a simulated clock. The\n" +
			"render loop runs at --render-fps; the session keeps at most\n" +
			"recording.target_frame_rate frames per second.",
		usage: "capturetrack synth OUT [flags]",
		examples: []example{
			{description: "Ten seconds of all trackable kinds", command: "capturetrack synth demo.ctrk --frames 600"},
			{description: "Planes only, one readback in eight failing", command: "capturetrack synth planes.ctrk --encoders planes --fail-every 8"},
		},
		flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("synth", pflag.ContinueOnError)
			common.register(flagSet)
			flagSet.IntVar(&frames, "frames", 300, "render frames to simulate")
			flagSet.Float64Var(&renderFPS, "render-fps", 60, "simulated render rate")
			flagSet.Uint64Var(&seed, "seed", 1, "random seed for the synthetic world")
			flagSet.IntVar(&width, "width", 64, "synthetic frame width in pixels")
			flagSet.IntVar(&height, "height", 36, "synthetic frame height in pixels")
			flagSet.IntVar(&inFlight, "in-flight", 4, "readbacks that may be pending at once")
			flagSet.Uint64Var(&failEvery, "fail-every", 0, "fail every Nth readback (0: never)")
			flagSet.StringVar(&compression, "compression", "", "record compression (default: recording.compression from config)")
			flagSet.StringSliceVar(&encoders, "encoders", nil, "snapshot kinds to record (default: recording.encoders from config)")
			flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
			return flagSet
		},
		run: func(args []string) error {
			if err := requireArgs(args, 1, "capturetrack synth OUT"); err != nil {
				return err
			}
			cfg, logger, err := common.load(a)
			if err != nil {
				return err
			}
			if frames < 0 || !finiteRate(renderFPS) || width <= 0 || height <= 0 || inFlight <= 0 {
				return fmt.Errorf("--frames, --render-fps, --width, --height and --in-flight must be positive")
			}
			if compression == "" {
				compression = cfg.Recording.Compression
			}
			recordCompression, err := trackfile.ParseCompression(compression)
			if err != nil {
				return err
			}
			if len(encoders) == 0 {
				encoders = cfg.Recording.Encoders
			}
			assembler, byKind, err := snapshot.NewAssemblerForKinds(encoders)
			if err != nil {
				return err
			}

			simulated := clock.Fake(time.Now())
			readback := newAsyncReadback(width, height, inFlight, failEvery)
			defer readback.Close()
			writer := trackfile.NewWriter(trackfile.Options{Compression: recordCompression, Logger: logger})

			model := cfg.Recording.ModelName
			if model == "" {
				model = "synthetic"
			}
			screenWidth, screenHeight := cfg.Recording.ScreenWidth, cfg.Recording.ScreenHeight
			if screenWidth == 0 || screenHeight == 0 {
				screenWidth, screenHeight = width, height
			}
			session, err := recording.NewSession(recording.Config{
				Assembler:         assembler,
				Sensors:           newSyntheticSensors(simulated),
				Readback:          readback,
				Muxer:             writer,
				TargetFrameRate:   cfg.Recording.TargetFrameRate,
				Header:            metatrack.Header{ModelName: model, ScreenWidth: screenWidth, ScreenHeight: screenHeight},
				Clock:             simulated,
				Logger:            logger,
				InitialBufferSize: cfg.Recording.InitialBufferSize,
			})
			if err != nil {
				return err
			}

			path := cfg.OutputPath(args[0])
			if err := session.Start(path); err != nil {
				return err
			}
			world := newSyntheticWorld(byKind, seed)
			step := time.Duration(float64(time.Second) / renderFPS)
			for n := range frames {
				if err := world.step(n); err != nil {
					logger.Error("synthetic world step failed", "frame", n, "error", err)
				}
				if err := session.Update(); err != nil {
					logger.Warn("frame not recorded", "frame", n, "error", err)
				}
				simulated.Advance(step)
			}
			if err := session.Stop(); err != nil {
				return err
			}

			report := synthReport{
				Path:         path,
				RecordingID:  session.Header().RecordingID.String(),
				RenderFrames: frames,
				Session:      session.Stats(),
				Writer:       writer.Stats(),
			}
			if outputJSON {
				encoder := json.NewEncoder(a.stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(report)
			}
			style := newStyles(a.stdout)
			fmt.Fprintln(a.stdout, style.title.Render(report.Path))
			fmt.Fprintf(a.stdout, "%s %s\n", style.label.Render("recording id"), report.RecordingID)
			fmt.Fprintf(a.stdout, "%s %d\n", style.label.Render("render frames"), report.RenderFrames)
			fmt.Fprintf(a.stdout, "%s %d\n", style.label.Render("records"), report.Writer.Records)
			fmt.Fprintf(a.stdout, "%s %d\n", style.label.Render("with pixels"), report.Session.Written)
			fmt.Fprintf(a.stdout, "%s %d\n", style.label.Render("metadata only"), report.Session.MetadataOnly)
			fmt.Fprintf(a.stdout, "%s %d\n", style.label.Render("deduplicated"), report.Session.Queue.Deduplicated)
			fmt.Fprintf(a.stdout, "%s %d\n", style.label.Render("request failures"), report.Session.RequestFailures)
			return nil
		},
	}
}
