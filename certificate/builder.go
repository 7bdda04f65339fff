package certificate

import (
	"github.com/cqcert/cqcert/analyze"
	"github.com/cqcert/cqcert/calibrate"
	"github.com/cqcert/cqcert/cqerr"
	"github.com/cqcert/cqcert/fixed"
	"github.com/cqcert/cqcert/internal/wire"
	"github.com/cqcert/cqcert/verify"
)

// Version is a four-part tool version (major.minor.patch.build).
type Version struct {
	Major, Minor, Patch, Build uint8
}

// Builder accepts the setters spec §4.E describes and assembles a
// Certificate once all six "set" bits are present. The builder is
// otherwise order-independent — setters may be called in any sequence.
// Grounded on cq_certificate_builder_*.
type Builder struct {
	version Version

	sourceModelHash    [32]byte
	sourceHashSet      bool

	bnFolded   bool
	bnHash     [32]byte
	bnInfoSet  bool

	analysisDigest  analyze.Digest
	analysisSet     bool

	calibrationDigest calibrate.Digest
	calibrationSet    bool

	verificationDigest verify.Digest
	verificationSet    bool

	targetModelHash  [32]byte
	targetParamCount uint32
	targetLayerCount uint32
	targetSet        bool

	scopeFormat byte
}

// NewBuilder returns a builder defaulted to Q16.16 format and version
// 0.1.0.0, matching cq_certificate_builder_init.
func NewBuilder() *Builder {
	return &Builder{
		scopeFormat: FormatQ16_16,
		version:     Version{0, 1, 0, 0},
	}
}

// SetVersion records the tool version.
func (b *Builder) SetVersion(v Version) *Builder {
	b.version = v
	return b
}

// SetFormat records the fixed-point format used by the target model.
func (b *Builder) SetFormat(f fixed.Format) *Builder {
	if f == fixed.Q8_24 {
		b.scopeFormat = FormatQ8_24
	} else {
		b.scopeFormat = FormatQ16_16
	}
	return b
}

// SetSourceHash records the floating-point source model's hash.
func (b *Builder) SetSourceHash(hash [32]byte) *Builder {
	b.sourceModelHash = hash
	b.sourceHashSet = true
	return b
}

// SetBNInfo records whether BatchNorm folding occurred and its hash (all
// zero if the model had no BN to fold).
func (b *Builder) SetBNInfo(folded bool, hash [32]byte) *Builder {
	b.bnFolded = folded
	b.bnHash = hash
	b.bnInfoSet = true
	return b
}

// SetAnalysis records the analysis digest.
func (b *Builder) SetAnalysis(d analyze.Digest) *Builder {
	b.analysisDigest = d
	b.analysisSet = true
	return b
}

// SetCalibration records the calibration digest.
func (b *Builder) SetCalibration(d calibrate.Digest) *Builder {
	b.calibrationDigest = d
	b.calibrationSet = true
	return b
}

// SetVerification records the verification digest.
func (b *Builder) SetVerification(d verify.Digest) *Builder {
	b.verificationDigest = d
	b.verificationSet = true
	return b
}

// SetTarget records the quantized target model's hash, parameter count,
// and layer count.
func (b *Builder) SetTarget(hash [32]byte, paramCount, layerCount uint32) *Builder {
	b.targetModelHash = hash
	b.targetParamCount = paramCount
	b.targetLayerCount = layerCount
	b.targetSet = true
	return b
}

// IsComplete reports whether all six "set" bits are present. Grounded on
// cq_certificate_builder_is_complete.
func (b *Builder) IsComplete() bool {
	return b.sourceHashSet && b.bnInfoSet && b.analysisSet &&
		b.calibrationSet && b.verificationSet && b.targetSet
}

// nowFn is overridable in tests so the timestamp field is deterministic.
var nowFn = defaultNow

// Build assembles the certificate deterministically (spec §4.E "Assembly
// steps"). It refuses to build when the builder is incomplete or when the
// calibration digest carries the range-exceed veto. The analysis and
// verification digests carry no fault set and are not checked: a
// certificate whose measured error exceeds its claimed bound is still
// built, and reports BoundsSatisfied() == false. Grounded on
// cq_certificate_build.
func (b *Builder) Build() (*Certificate, error) {
	if !b.IsComplete() {
		return nil, cqerr.New(cqerr.IncompleteBuilder, "certificate builder is missing one or more required fields")
	}
	if b.calibrationDigest.RangeVetoStatus {
		return nil, cqerr.New(cqerr.Refused, "calibration digest carries a fatal range-exceed veto")
	}

	cert := &Certificate{}
	w := wire.NewWriter(cert.raw[:0])

	// 1. Metadata header.
	w.PutBytes(Magic[:])
	w.PutU8(b.version.Major)
	w.PutU8(b.version.Minor)
	w.PutU8(b.version.Patch)
	w.PutU8(b.version.Build)
	w.PutU64LE(nowFn())

	// 2. Scope.
	w.PutU8(ScopeSymmetricOnly)
	w.PutU8(b.scopeFormat)
	w.PutZeros(6)

	// 3. Source identity.
	w.PutBytes(b.sourceModelHash[:])
	w.PutBytes(b.bnHash[:])
	if b.bnFolded {
		w.PutU8(0x01)
	} else {
		w.PutU8(0x00)
	}
	w.PutZeros(7)

	// 4. Mathematical core.
	ah := hashAnalysisDigest(b.analysisDigest)
	ch := hashCalibrationDigest(b.calibrationDigest)
	vh := hashVerificationDigest(b.verificationDigest)
	w.PutBytes(ah[:])
	w.PutBytes(ch[:])
	w.PutBytes(vh[:])

	// 5. Claims.
	w.PutFloat64LE(b.analysisDigest.EntryError)
	w.PutFloat64LE(b.analysisDigest.TotalErrorBound)
	w.PutFloat64LE(b.verificationDigest.TotalErrorMaxMeasured)
	w.PutZeros(8)

	// 6. Target identity.
	w.PutBytes(b.targetModelHash[:])
	w.PutU32LE(b.targetParamCount)
	w.PutU32LE(b.targetLayerCount)

	if w.Len() != merkleContentSize {
		return nil, cqerr.New(cqerr.Refused, "internal error: certificate assembly length mismatch before merkle section")
	}

	// 7. Integrity: merkle root over bytes [0, offMerkleRoot).
	copy(cert.raw[:w.Len()], w.Bytes())
	root := cert.computeMerkle()
	copy(cert.raw[offMerkleRoot:offMerkleRoot+32], root[:])

	// Signature left zeroed (reserved, unsigned in this core).

	return cert, nil
}
