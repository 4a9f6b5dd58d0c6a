// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackable

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Identity uniquely identifies a trackable for its whole lifetime.
// Equality and hashing are structural, so Identity is usable as a map
// key directly.
type Identity struct {
	Hi uint64
	Lo uint64
}

// String formats the identity as two zero-padded hex halves joined by
// a dash.
func (id Identity) String() string {
	return fmt.Sprintf("%016x-%016x", id.Hi, id.Lo)
}

// IsZero reports whether id is the zero identity, which sensors use
// for "no trackable".
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// Compare orders identities by Hi, then Lo.
func (id Identity) Compare(other Identity) int {
	if c := cmp.Compare(id.Hi, other.Hi); c != 0 {
		return c
	}
	return cmp.Compare(id.Lo, other.Lo)
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseIdentity parses the form produced by [Identity.String].
func ParseIdentity(s string) (Identity, error) {
	hi, lo, found := strings.Cut(s, "-")
	if !found || len(hi) != 16 || len(lo) != 16 {
		return Identity{}, fmt.Errorf("invalid trackable identity %q", s)
	}
	hiValue, err := strconv.ParseUint(hi, 16, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid trackable identity %q: %w", s, err)
	}
	loValue, err := strconv.ParseUint(lo, 16, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid trackable identity %q: %w", s, err)
	}
	return Identity{Hi: hiValue, Lo: loValue}, nil
}
