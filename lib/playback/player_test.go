// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package playback

import (
	"bytes"
	"testing"

	"github.com/bureau-foundation/capturetrack/lib/metatrack"
)

func trackOf(t *testing.T, records ...[]byte) *metatrack.Track {
	t.Helper()
	track := &metatrack.Track{}
	for i, data := range records {
		if err := track.Append(float64(i), data); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}
	return track
}

func TestPlayerLookupNearestPreceding(t *testing.T) {
	t.Parallel()
	player := NewPlayer(trackOf(t, []byte("zero"), []byte("one"), []byte("two")))

	tests := []struct {
		time  float64
		ok    bool
		index int
		data  string
	}{
		{time: -0.1, ok: false},
		{time: 0, ok: true, index: 0, data: "zero"},
		{time: 1.5, ok: true, index: 1, data: "one"},
		{time: 2, ok: true, index: 2, data: "two"},
		{time: 99, ok: true, index: 2, data: "two"},
	}
	for _, test := range tests {
		record, ok := player.Lookup(test.time)
		if ok != test.ok {
			t.Errorf("Lookup(%v) ok = %v, want %v", test.time, ok, test.ok)
			continue
		}
		if !ok {
			continue
		}
		if record.Index != test.index || string(record.Data) != test.data {
			t.Errorf("Lookup(%v) = (%d, %q), want (%d, %q)", test.time, record.Index, record.Data, test.index, test.data)
		}
	}
}

func TestPlayerEmptySource(t *testing.T) {
	t.Parallel()
	player := NewPlayer(&metatrack.Track{})
	if _, ok := player.Lookup(0); ok {
		t.Error("Lookup on an empty track reported a record")
	}
}

func TestPlayerCopiesIntoScratch(t *testing.T) {
	t.Parallel()
	track := trackOf(t, []byte("original"))
	player := NewPlayer(track)

	record, _ := player.Lookup(0)
	record.Data[0] = 'X'
	if got := track.Record(0).Data; !bytes.Equal(got, []byte("original")) {
		t.Errorf("track data changed through the player: %q", got)
	}
}

func TestPlayerGrowsScratchForAppendedRecords(t *testing.T) {
	t.Parallel()
	track := trackOf(t, []byte("a"))
	player := NewPlayer(track)
	if err := track.Append(1, bytes.Repeat([]byte("b"), 100)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	record, ok := player.Lookup(1)
	if !ok || len(record.Data) != 100 {
		t.Fatalf("Lookup after growth = %d bytes, ok %v", len(record.Data), ok)
	}

	player.Release()
	if record := player.Load(0); string(record.Data) != "a" {
		t.Errorf("Load after Release = %q", record.Data)
	}
}
