// Package ident provides the 128-bit keyed content hash used as C-import
// and document content identity. It follows a familiar xxhash-based "fast
// hash, cheap equality" idiom, widened to 128 bits by combining two
// independently-seeded 64-bit digests so
// translated-C-source identity collisions are astronomically unlikely
// without pulling in a dedicated 128-bit hash dependency.
package ident

import (
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// key2 is mixed into the second digest so it is not simply the first
// digest's input hashed twice; the value has no meaning beyond being a
// fixed, non-zero odd constant.
const key2 = 0x9E3779B97F4A7C15

// Hash is a 128-bit keyed digest over a byte sequence.
type Hash struct {
	Lo uint64
	Hi uint64
}

// Sum computes the keyed hash of data.
func Sum(data []byte) Hash {
	d1 := xxhash.New()
	d1.Write(data)
	lo := d1.Sum64()

	d2 := xxhash.New()
	var seed [8]byte
	for i := range seed {
		seed[i] = byte(key2 >> (8 * i))
	}
	d2.Write(seed[:])
	d2.Write(data)
	hi := d2.Sum64()

	return Hash{Lo: lo, Hi: hi}
}

// String renders the hash as a fixed-width hex string suitable for use as a
// map key or diagnostic tag.
func (h Hash) String() string {
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(h.Lo >> (8 * (7 - i)))
		buf[8+i] = byte(h.Hi >> (8 * (7 - i)))
	}
	return hex.EncodeToString(buf[:])
}

// IsZero reports whether h is the zero hash (never a valid digest of
// non-empty input in practice).
func (h Hash) IsZero() bool {
	return h.Lo == 0 && h.Hi == 0
}

// Tag derives a short, filesystem- and diagnostics-safe tag from the hash,
// used when a stable short identifier is needed alongside the full hash
// (e.g. a deterministic tag derived from a build file's URI).
func Tag(prefix string, h Hash) string {
	return fmt.Sprintf("%s-%08x", prefix, uint32(h.Lo))
}
