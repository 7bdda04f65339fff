package verify

import (
	"github.com/cqcert/cqcert/cqerr"
	"github.com/cqcert/cqcert/internal/wire"
)

// Digest is the verification digest (spec §3 "Verification report",
// §4.D "Digest output"): verification-set hash, sample count, count of
// layers that passed, theoretical total, measured total-max, pass bit.
type Digest struct {
	VerificationSetHash   [32]byte
	SampleCount           uint64
	LayersPassed          uint32
	TotalErrorTheoretical float64
	TotalErrorMaxMeasured float64
	BoundsSatisfied       bool
}

// GenerateDigest builds the digest from a sealed report. Grounded on
// cq_verification_digest_generate.
func GenerateDigest(r *Report) (Digest, error) {
	if !r.Sealed() {
		return Digest{}, cqerr.New(cqerr.OutOfOrder, "verification report must be finalized before a digest can be generated")
	}

	var passed uint32
	for _, l := range r.Layers {
		if l.BoundSatisfied {
			passed++
		}
	}

	return Digest{
		VerificationSetHash:   r.VerificationSetHash,
		SampleCount:           r.SampleCount,
		LayersPassed:          passed,
		TotalErrorTheoretical: r.TotalErrorTheoretical,
		TotalErrorMaxMeasured: r.TotalErrorMaxMeasured(),
		BoundsSatisfied:       r.AllBoundsSatisfied && r.TotalBoundSatisfied,
	}, nil
}

// Bytes serializes the digest into a canonical byte form for hashing into
// the certificate.
func (d Digest) Bytes() []byte {
	w := wire.NewWriter(make([]byte, 0, 96))
	w.PutBytes(d.VerificationSetHash[:])
	w.PutU64LE(d.SampleCount)
	w.PutU32LE(d.LayersPassed)
	w.PutFloat64LE(d.TotalErrorTheoretical)
	w.PutFloat64LE(d.TotalErrorMaxMeasured)
	if d.BoundsSatisfied {
		w.PutU8(1)
	} else {
		w.PutU8(0)
	}
	return w.Bytes()
}
