// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package playback

import "github.com/bureau-foundation/capturetrack/lib/metatrack"

// Source is a time-ordered record sequence. *metatrack.Track
// implements it.
type Source interface {
	Search(time float64) (index int, ok bool)
	Record(i int) metatrack.Record
	Len() int
	MaxRecordSize() int
}

// Player looks up records in a Source. Not safe for concurrent use:
// each playback session owns its own Player and scratch buffer.
type Player struct {
	source  Source
	scratch []byte
}

// NewPlayer returns a Player with a scratch buffer sized for the
// largest record in source.
func NewPlayer(source Source) *Player {
	return &Player{source: source, scratch: make([]byte, source.MaxRecordSize())}
}

// Source returns the player's record source.
func (p *Player) Source() Source { return p.source }

// Index returns the index of the nearest-preceding record for time.
func (p *Player) Index(time float64) (int, bool) {
	return p.source.Search(time)
}

// Lookup returns the nearest-preceding record for time. ok is false
// when the source is empty or time is before its first record.
// Record.Data aliases the player's scratch buffer and is valid until
// the next Lookup or Load.
func (p *Player) Lookup(time float64) (metatrack.Record, bool) {
	index, ok := p.source.Search(time)
	if !ok {
		return metatrack.Record{}, false
	}
	return p.Load(index), true
}

// Load returns record i with its data copied into the scratch buffer.
// Panics if i is out of range.
func (p *Player) Load(i int) metatrack.Record {
	record := p.source.Record(i)
	// The source may have grown since the buffer was sized.
	if len(record.Data) > len(p.scratch) {
		p.scratch = make([]byte, max(len(record.Data), p.source.MaxRecordSize()))
	}
	n := copy(p.scratch, record.Data)
	record.Data = p.scratch[:n]
	return record
}

// Release drops the scratch buffer. A later Load reallocates it.
func (p *Player) Release() {
	p.scratch = nil
}
