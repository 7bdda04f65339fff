// Package digest is the sole place in the module that imports crypto/sha256.
// Every hash the core produces — layer-contract digests, BatchNorm folding
// hashes, and the certificate's own Merkle root — goes through here, so the
// hash algorithm is a one-line change if it is ever revisited.
//
// SHA-256 is used rather than the teacher's golang.org/x/crypto/sha3 because
// the spec's wire format is specified in terms of SHA-256 digests; the
// standard library's implementation is pure Go (no cgo, no OS crypto API)
// and already satisfies "self-contained...no system crypto dependency".
package digest

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"math"
)

// Size is the digest width in bytes.
const Size = sha256.Size

// Sum32 hashes b and returns the 32-byte digest.
func Sum32(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// Hasher is an incremental SHA-256 hasher for callers that build a preimage
// from several disjoint slices (e.g. BatchNorm gamma/beta/mean/var/epsilon)
// without concatenating them into one buffer first.
type Hasher struct {
	h hash.Hash
}

// NewHasher returns a fresh incremental hasher.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Write feeds bytes into the running hash. It never returns an error — the
// underlying sha256 implementation never fails a Write.
func (h *Hasher) Write(b []byte) {
	h.h.Write(b)
}

// WriteFloat32s hashes a slice of float32 values as their IEEE-754 bit
// patterns, little-endian, matching the layout the analyzer and converter
// use when serializing tensors for hashing.
func (h *Hasher) WriteFloat32s(vals []float32) {
	var buf [4]byte
	for _, v := range vals {
		putFloat32LE(buf[:], v)
		h.h.Write(buf[:])
	}
}

// Sum returns the final 32-byte digest without mutating the hasher further.
func (h *Hasher) Sum() [32]byte {
	var out [32]byte
	copy(out[:], h.h.Sum(nil))
	return out
}

func putFloat32LE(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}
