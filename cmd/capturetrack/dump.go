// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/capturetrack/lib/playback"
	"github.com/bureau-foundation/capturetrack/lib/snapshot"
	"github.com/bureau-foundation/capturetrack/lib/trackable"
	"github.com/bureau-foundation/capturetrack/lib/trackfile"
)

type dumpOutput struct {
	Index       int                       `json:"index"`
	Time        float64                   `json:"time"`
	PixelBytes  int                       `json:"pixel_bytes"`
	Compression string                    `json:"compression"`
	Digest      string                    `json:"digest"`
	Camera      snapshot.CameraFrame      `json:"camera"`
	Pose        trackable.Pose            `json:"pose"`
	Planes      *sectionView              `json:"planes,omitempty"`
	Meshes      *sectionView              `json:"meshes,omitempty"`
	Geospatial  *snapshot.GeospatialState `json:"geospatial,omitempty"`
	Streetscape *sectionView              `json:"streetscape,omitempty"`
	PointClouds *sectionView              `json:"point_clouds,omitempty"`
}

// sectionView is a trackable section for display: the diff as is, and
// payloads as sizes unless --payloads asks for the bytes.
type sectionView struct {
	Added        any                           `json:"added,omitempty"`
	Updated      any                           `json:"updated,omitempty"`
	Removed      []trackable.Identity          `json:"removed,omitempty"`
	PayloadSizes map[trackable.Identity]int    `json:"payload_sizes,omitempty"`
	Payloads     map[trackable.Identity][]byte `json:"payloads,omitempty"`
}

func viewSection[T trackable.Record](section *snapshot.Section[T], withPayloads bool) *sectionView {
	if section == nil {
		return nil
	}
	view := &sectionView{Removed: section.Diff.Removed}
	if len(section.Diff.Added) > 0 {
		view.Added = section.Diff.Added
	}
	if len(section.Diff.Updated) > 0 {
		view.Updated = section.Diff.Updated
	}
	if withPayloads {
		view.Payloads = section.Payloads
	} else if len(section.Payloads) > 0 {
		view.PayloadSizes = make(map[trackable.Identity]int, len(section.Payloads))
		for id, payload := range section.Payloads {
			view.PayloadSizes[id] = len(payload)
		}
	}
	return view
}

func (a *app) dumpCommand() *command {
	var (
		common       commonFlags
		at           float64
		index        int
		withPayloads bool
	)
	return &command{
		name:    "dump",
		summary: "Print the snapshot recorded at a playback time as JSON",
		usage:   "capturetrack dump FILE [--at SECONDS | --index N] [flags]",
		examples: []example{
			{description: "Snapshot in effect 2.5 seconds in", command: "capturetrack dump session.ctrk --at 2.5"},
			{description: "Third record, with payload bytes", command: "capturetrack dump session.ctrk --index 2 --payloads"},
		},
		flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("dump", pflag.ContinueOnError)
			common.register(flagSet)
			flagSet.Float64Var(&at, "at", 0, "playback time in seconds; the nearest preceding record is shown")
			flagSet.IntVar(&index, "index", -1, "record index, overrides --at")
			flagSet.BoolVar(&withPayloads, "payloads", false, "include payload bytes (base64) instead of sizes")
			return flagSet
		},
		run: func(args []string) error {
			if err := requireArgs(args, 1, "capturetrack dump FILE"); err != nil {
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

			player := playback.NewPlayer(reader.Track())
			if index < 0 {
				found, ok := player.Index(at)
				if !ok {
					return fmt.Errorf("no record at or before %gs", at)
				}
				index = found
			}
			if index >= reader.Len() {
				return fmt.Errorf("record %d out of range (recording has %d)", index, reader.Len())
			}
			record := player.Load(index)
			decoded, err := snapshot.Unmarshal(record.Data)
			if err != nil {
				return fmt.Errorf("record %d: %w", index, err)
			}

			info := reader.Info(index)
			output := dumpOutput{
				Index:       index,
				Time:        record.Time,
				PixelBytes:  info.PixelsLen,
				Compression: info.Compression.String(),
				Digest:      info.Digest.String(),
				Camera:      decoded.Camera,
				Pose:        decoded.Pose,
				Planes:      viewSection(decoded.Planes, withPayloads),
				Meshes:      viewSection(decoded.Meshes, withPayloads),
				Geospatial:  decoded.Geospatial,
				Streetscape: viewSection(decoded.Streetscape, withPayloads),
				PointClouds: viewSection(decoded.PointClouds, withPayloads),
			}
			encoder := json.NewEncoder(a.stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(output)
		},
	}
}
