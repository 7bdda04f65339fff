package calibrate

import (
	"github.com/cqcert/cqcert/cqerr"
	"github.com/cqcert/cqcert/internal/wire"
)

// Digest is the calibration digest (spec §3 "Calibration report", §4.C
// "Digest output"): dataset hash, sample count, tensor count, C_min,
// C_p10, and the two veto statuses.
type Digest struct {
	DatasetHash           [32]byte
	SampleCount           uint64
	TensorCount           uint32
	CoverageMin           float64
	CoverageP10           float64
	RangeVetoStatus       bool
	CoverageVetoStatus    bool
}

// GenerateDigest builds the digest from a sealed report. Grounded on
// cq_calibration_digest_generate.
func GenerateDigest(r *Report) (Digest, error) {
	if !r.Sealed() {
		return Digest{}, cqerr.New(cqerr.OutOfOrder, "calibration report must be finalized before a digest can be generated")
	}
	return Digest{
		DatasetHash:        r.DatasetHash,
		SampleCount:        r.SampleCount,
		TensorCount:        uint32(len(r.Tensors)),
		CoverageMin:        r.CoverageMin,
		CoverageP10:        r.CoverageP10,
		RangeVetoStatus:    r.RangeVetoTriggered,
		CoverageVetoStatus: r.CoverageVetoTriggered,
	}, nil
}

// Passed reports whether the certificate may be issued from this digest:
// the calibrator never fails the certificate on a coverage veto alone, only
// on the fatal range veto.
func (d Digest) Passed() bool {
	return !d.RangeVetoStatus
}

// Bytes serializes the digest into a canonical byte form for hashing into
// the certificate.
func (d Digest) Bytes() []byte {
	w := wire.NewWriter(make([]byte, 0, 64))
	w.PutBytes(d.DatasetHash[:])
	w.PutU64LE(d.SampleCount)
	w.PutU32LE(d.TensorCount)
	w.PutFloat64LE(d.CoverageMin)
	w.PutFloat64LE(d.CoverageP10)
	if d.RangeVetoStatus {
		w.PutU8(1)
	} else {
		w.PutU8(0)
	}
	if d.CoverageVetoStatus {
		w.PutU8(1)
	} else {
		w.PutU8(0)
	}
	return w.Bytes()
}
