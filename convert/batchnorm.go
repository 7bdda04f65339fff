package convert

import (
	"math"

	"github.com/cqcert/cqcert/cqerr"
	"github.com/cqcert/cqcert/digest"
	"github.com/cqcert/cqcert/faults"
)

// BNParams is the per-channel BatchNorm parameter set used to fold a
// preceding linear/conv layer's weights and bias, matching
// original_source's cq_bn_params_t.
type BNParams struct {
	Gamma        []float32
	Beta         []float32
	Mean         []float32
	Var          []float32
	Epsilon      float32
	ChannelCount int
}

// BNFoldingRecord documents a folding operation for the certificate: the
// hash of the original BN parameters, the hash of the resulting folded
// weights/bias, which layer it applied to, and whether folding actually
// occurred. A model with no BatchNorm to fold carries a zero record with
// Occurred == false (spec §4.E "all zeros if the model had no BN to
// fold").
type BNFoldingRecord struct {
	OriginalHash [32]byte
	FoldedHash   [32]byte
	LayerIndex   uint32
	Occurred     bool
}

// FoldBatchNorm computes W' = W * gamma / sqrt(var+eps) and
// b' = (b - mean) * gamma / sqrt(var+eps) + beta, in FP64 throughout
// (spec.md IMPL-WATCH-03 equivalent: all scratch floats are double
// precision, no FMA, no extended precision). Grounded on
// original_source/src/convert/bn_fold.c's cq_fold_batchnorm.
func FoldBatchNorm(w, b []float32, bn BNParams, rows, cols int, layerIndex uint32, fl *faults.Set) (wFolded, bFolded []float32, rec BNFoldingRecord, err error) {
	if bn.ChannelCount != rows {
		return nil, nil, BNFoldingRecord{}, cqerr.New(cqerr.DimensionMismatch, "batchnorm channel count must equal weight rows")
	}

	rec.LayerIndex = layerIndex

	h := digest.NewHasher()
	h.WriteFloat32s(bn.Gamma)
	h.WriteFloat32s(bn.Beta)
	h.WriteFloat32s(bn.Mean)
	h.WriteFloat32s(bn.Var)
	h.WriteFloat32s([]float32{bn.Epsilon})
	rec.OriginalHash = h.Sum()

	wFolded = make([]float32, len(w))
	bFolded = make([]float32, rows)

	for i := 0; i < rows; i++ {
		varEps := float64(bn.Var[i]) + float64(bn.Epsilon)
		if varEps <= 0.0 {
			fl.Raise(faults.DivZero)
			return nil, nil, BNFoldingRecord{}, cqerr.New(cqerr.DimensionMismatch, "batchnorm variance+epsilon is non-positive")
		}

		invStd := 1.0 / math.Sqrt(varEps)
		scale := float64(bn.Gamma[i]) * invStd
		offset := float64(bn.Beta[i]) - float64(bn.Mean[i])*scale

		oldB := 0.0
		if b != nil {
			oldB = float64(b[i])
		}
		bFolded[i] = float32(oldB*scale + offset)

		for j := 0; j < cols; j++ {
			idx := i*cols + j
			wFolded[idx] = float32(float64(w[idx]) * scale)
		}
	}

	h2 := digest.NewHasher()
	h2.WriteFloat32s(wFolded)
	h2.WriteFloat32s(bFolded)
	rec.FoldedHash = h2.Sum()
	rec.Occurred = true

	return wFolded, bFolded, rec, nil
}
