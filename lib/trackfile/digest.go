// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackfile

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest is the BLAKE3 keyed hash stored with each record.
type Digest [32]byte

// String returns the hex form of the digest.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// recordDomainKey separates record digests from any other BLAKE3 use of
// the same bytes. The key is the ASCII domain name, zero-padded to 32
// bytes; changing it invalidates every existing recording.
var recordDomainKey = [32]byte{
	'c', 'a', 'p', 't', 'u', 'r', 'e', 't', 'r', 'a', 'c', 'k', '.',
	'm', 'e', 't', 'a', 'd', 'a', 't', 'a',
}

// recordDigest hashes the uncompressed metadata followed by the pixels,
// so the digest does not depend on the compression chosen.
func recordDigest(metadata, pixels []byte) Digest {
	hasher, err := blake3.NewKeyed(recordDomainKey[:])
	if err != nil {
		// Only a wrong key length fails, and the key is fixed-size.
		panic("trackfile: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(metadata)
	hasher.Write(pixels)
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}
