// Package certificate implements the notary ("The Certificate Builder",
// spec §4.E): a staged builder that assembles the three upstream digests
// and model identities into a fixed 360-byte, tamper-evident certificate,
// and the header/integrity checks needed to verify one later. Grounded on
// original_source/src/certificate/certificate.c.
package certificate

import (
	"crypto/subtle"

	"github.com/cqcert/cqcert/analyze"
	"github.com/cqcert/cqcert/calibrate"
	"github.com/cqcert/cqcert/cqerr"
	"github.com/cqcert/cqcert/digest"
	"github.com/cqcert/cqcert/internal/wire"
	"github.com/cqcert/cqcert/verify"
)

// Size is the fixed certificate length in bytes (spec §3 "Certificate",
// §6 wire table).
const Size = 360

// Field offsets, matching the §6 wire table exactly.
const (
	offMagic               = 0
	offVersion              = 4
	offTimestamp            = 8
	offScopeSymmetricOnly   = 16
	offScopeFormat          = 17
	offReserved1            = 18 // 6 bytes
	offSourceModelHash      = 24
	offBNFoldingHash        = 56
	offBNFoldingStatus      = 88
	offReserved2            = 89 // 7 bytes
	offAnalysisDigestHash   = 96
	offCalibrationDigestHash = 128
	offVerificationDigestHash = 160
	offEpsilon0             = 192
	offEpsilonTotal         = 200
	offEpsilonMaxMeasured   = 208
	offReserved3            = 216 // 8 bytes
	offTargetModelHash      = 224
	offTargetParamCount     = 256
	offTargetLayerCount     = 260
	offMerkleRoot           = 264
	offSignature            = 296

	// merkleContentSize is the number of bytes hashed to produce the
	// Merkle root: sections 1-6, i.e. everything before offMerkleRoot.
	merkleContentSize = offMerkleRoot
)

// Magic is the fixed 4-byte certificate magic, ASCII "CQCR".
var Magic = [4]byte{'C', 'Q', 'C', 'R'}

// Scope constants (spec §6).
const (
	ScopeSymmetricOnly byte = 0x01
	FormatQ16_16       byte = 0x00
	FormatQ8_24        byte = 0x01
)

// Certificate is the fixed 360-byte wire-format proof object. Because the
// in-memory layout is the wire format, Raw() is always exactly Size bytes
// and serialization is a plain copy (spec §4.E "Serialise/deserialize").
type Certificate struct {
	raw [Size]byte
}

// Raw returns the certificate's wire bytes.
func (c *Certificate) Raw() []byte {
	return c.raw[:]
}

func (c *Certificate) readHash(off int) [32]byte {
	var h [32]byte
	copy(h[:], c.raw[off:off+32])
	return h
}

// MagicBytes returns the 4-byte magic field.
func (c *Certificate) MagicBytes() [4]byte {
	var m [4]byte
	copy(m[:], c.raw[offMagic:offMagic+4])
	return m
}

// Version returns the 4-byte tool version (major.minor.patch.build).
func (c *Certificate) Version() [4]byte {
	var v [4]byte
	copy(v[:], c.raw[offVersion:offVersion+4])
	return v
}

// Timestamp returns the certificate's unix-seconds timestamp.
func (c *Certificate) Timestamp() uint64 {
	cur := wire.NewCursor(c.raw[offTimestamp : offTimestamp+8])
	v, _ := cur.ReadU64LE()
	return v
}

// ScopeSymmetricOnly returns the scope byte at offset 16; a valid
// certificate always has this equal to ScopeSymmetricOnly.
func (c *Certificate) ScopeSymmetricOnly() byte {
	return c.raw[offScopeSymmetricOnly]
}

// ScopeFormat returns the fixed-point format tag.
func (c *Certificate) ScopeFormat() byte {
	return c.raw[offScopeFormat]
}

// SourceModelHash returns the source model's SHA-256 hash.
func (c *Certificate) SourceModelHash() [32]byte {
	return c.readHash(offSourceModelHash)
}

// BNFoldingHash returns the BatchNorm folding record hash (zero if the
// model had no BN to fold).
func (c *Certificate) BNFoldingHash() [32]byte {
	return c.readHash(offBNFoldingHash)
}

// BNFoldingStatus returns true if BatchNorm folding occurred.
func (c *Certificate) BNFoldingStatus() bool {
	return c.raw[offBNFoldingStatus] == 0x01
}

// AnalysisDigestHash returns the SHA-256 of the serialized analysis
// digest structure.
func (c *Certificate) AnalysisDigestHash() [32]byte {
	return c.readHash(offAnalysisDigestHash)
}

// CalibrationDigestHash returns the SHA-256 of the serialized calibration
// digest structure.
func (c *Certificate) CalibrationDigestHash() [32]byte {
	return c.readHash(offCalibrationDigestHash)
}

// VerificationDigestHash returns the SHA-256 of the serialized
// verification digest structure.
func (c *Certificate) VerificationDigestHash() [32]byte {
	return c.readHash(offVerificationDigestHash)
}

func (c *Certificate) readFloat64(off int) float64 {
	cur := wire.NewCursor(c.raw[off : off+8])
	v, _ := cur.ReadFloat64LE()
	return v
}

// Epsilon0Claimed returns the claimed entry error.
func (c *Certificate) Epsilon0Claimed() float64 {
	return c.readFloat64(offEpsilon0)
}

// EpsilonTotalClaimed returns the claimed total error bound.
func (c *Certificate) EpsilonTotalClaimed() float64 {
	return c.readFloat64(offEpsilonTotal)
}

// EpsilonMaxMeasured returns the measured end-to-end maximum error.
func (c *Certificate) EpsilonMaxMeasured() float64 {
	return c.readFloat64(offEpsilonMaxMeasured)
}

// TargetModelHash returns the target (quantized) model's SHA-256 hash.
func (c *Certificate) TargetModelHash() [32]byte {
	return c.readHash(offTargetModelHash)
}

func (c *Certificate) readU32(off int) uint32 {
	cur := wire.NewCursor(c.raw[off : off+4])
	v, _ := cur.ReadU32LE()
	return v
}

// TargetParamCount returns the target model's parameter count.
func (c *Certificate) TargetParamCount() uint32 {
	return c.readU32(offTargetParamCount)
}

// TargetLayerCount returns the target model's layer count.
func (c *Certificate) TargetLayerCount() uint32 {
	return c.readU32(offTargetLayerCount)
}

// MerkleRoot returns the stored Merkle root.
func (c *Certificate) MerkleRoot() [32]byte {
	return c.readHash(offMerkleRoot)
}

// Signature returns the reserved 64-byte signature field, zero in this
// core (signature creation is an external collaborator's responsibility,
// spec §1 Non-goals).
func (c *Certificate) Signature() [64]byte {
	var s [64]byte
	copy(s[:], c.raw[offSignature:offSignature+64])
	return s
}

// BoundsSatisfied is a pure comparison of the claimed and measured error
// fields (spec §4.E "Verification...the bounds-satisfied predicate is a
// pure comparison of two fields").
func (c *Certificate) BoundsSatisfied() bool {
	return c.EpsilonMaxMeasured() <= c.EpsilonTotalClaimed()
}

// computeMerkle hashes bytes [0, offMerkleRoot) — sections 1-6 — with
// SHA-256. Grounded on cq_certificate_compute_merkle.
func (c *Certificate) computeMerkle() [32]byte {
	return digest.Sum32(c.raw[:merkleContentSize])
}

// VerifyHeader checks the magic, scope-symmetric-only byte, and that the
// format tag is one of the two known values. Grounded on
// cq_certificate_verify_header.
func (c *Certificate) VerifyHeader() bool {
	if c.MagicBytes() != Magic {
		return false
	}
	if c.ScopeSymmetricOnly() != ScopeSymmetricOnly {
		return false
	}
	f := c.ScopeFormat()
	return f == FormatQ16_16 || f == FormatQ8_24
}

// VerifyIntegrity recomputes the Merkle root and compares it in constant
// time to the stored field (spec §4.E "compare constant-time"). Grounded
// on cq_certificate_verify_integrity.
func (c *Certificate) VerifyIntegrity() bool {
	computed := c.computeMerkle()
	stored := c.MerkleRoot()
	return subtle.ConstantTimeCompare(computed[:], stored[:]) == 1
}

// Serialize returns a copy of the certificate's wire bytes.
func (c *Certificate) Serialize() []byte {
	out := make([]byte, Size)
	copy(out, c.raw[:])
	return out
}

// Deserialize parses buf into a Certificate. It rejects any buffer shorter
// than Size, then checks the header; integrity is a separate call
// (VerifyIntegrity) so callers can inspect a suspected-invalid certificate.
// Grounded on cq_certificate_deserialise.
func Deserialize(buf []byte) (*Certificate, error) {
	if len(buf) < Size {
		return nil, cqerr.New(cqerr.ShortBuffer, "certificate buffer shorter than 360 bytes")
	}
	c := &Certificate{}
	copy(c.raw[:], buf[:Size])
	if !c.VerifyHeader() {
		return nil, cqerr.New(cqerr.BadHeader, "certificate header is invalid")
	}
	return c, nil
}

// hashDigestStruct hashes a digest's canonical byte serialization, used by
// the builder to populate the mathematical-core section.
func hashAnalysisDigest(d analyze.Digest) [32]byte      { return digest.Sum32(d.Bytes()) }
func hashCalibrationDigest(d calibrate.Digest) [32]byte { return digest.Sum32(d.Bytes()) }
func hashVerificationDigest(d verify.Digest) [32]byte   { return digest.Sum32(d.Bytes()) }
