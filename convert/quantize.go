// Package convert implements the weight-quantization and BatchNorm-folding
// steps that derive the quantized model deterministically from its
// floating-point source (spec §1(a)). This supplements the distilled
// spec.md, which names the "unfolded-batchnorm" and "asymmetric" faults and
// the dyadic constraint but leaves their derivation implicit; both are
// fully specified in original_source/src/convert/{weight_quant,bn_fold}.c.
package convert

import (
	"math"

	"github.com/cqcert/cqcert/cqerr"
	"github.com/cqcert/cqcert/faults"
	"github.com/cqcert/cqcert/model"
)

// QuantizeWeightRNE converts one float32 weight into a 32-bit fixed-point
// code at the given scale exponent, rounding half-to-even. Go's math.Round
// ties away from zero like C99 round(), so the half-to-even correction
// below is required exactly as in the source's cq_quantize_weight_rne.
func QuantizeWeightRNE(w float32, scaleExp int8, fl *faults.Set) int32 {
	scale := math.Ldexp(1.0, int(scaleExp))
	scaled := float64(w) * scale

	r := math.Round(scaled)
	diff := r - scaled
	if diff < 0 {
		diff = -diff
	}
	if diff == 0.5 {
		i := int64(r)
		if i%2 != 0 {
			if scaled > 0 {
				r -= 1.0
			} else {
				r += 1.0
			}
		}
	}

	const maxI32 = float64(1<<31 - 1)
	const minI32 = -float64(1 << 31)
	if r > maxI32 {
		fl.Raise(faults.Overflow)
		return int32(1<<31 - 1)
	}
	if r < minI32 {
		fl.Raise(faults.Underflow)
		return int32(-1 << 31)
	}
	return int32(r)
}

// QuantizeWeights converts a batch of weights at the given tensor spec. The
// spec is rejected with AsymmetricSpec if it is not symmetric (spec §3
// Invariants: every tensor spec crossing the core must be symmetric).
func QuantizeWeights(wFP []float32, spec model.TensorSpec, fl *faults.Set) ([]int32, error) {
	if err := VerifySymmetric(spec, fl); err != nil {
		return nil, err
	}
	out := make([]int32, len(wFP))
	for i, w := range wFP {
		out[i] = QuantizeWeightRNE(w, spec.ScaleExp, fl)
	}
	return out, nil
}

// VerifySymmetric enforces that spec carries no zero-point. Asymmetric
// input is a fatal fault.
func VerifySymmetric(spec model.TensorSpec, fl *faults.Set) error {
	if !spec.IsSymmetric {
		fl.Raise(faults.Asymmetric)
		return cqerr.New(cqerr.AsymmetricSpec, "tensor spec is not symmetric")
	}
	return nil
}

// VerifyConstraints checks symmetry on all three tensor specs in a layer
// header and then the dyadic constraint, populating hdr.DyadicValid.
func VerifyConstraints(hdr *model.LayerHeader, fl *faults.Set) error {
	if err := VerifySymmetric(hdr.WeightSpec, fl); err != nil {
		return err
	}
	if err := VerifySymmetric(hdr.InputSpec, fl); err != nil {
		return err
	}
	if err := VerifySymmetric(hdr.BiasSpec, fl); err != nil {
		return err
	}

	if !hdr.ComputeDyadicValid() {
		return cqerr.New(cqerr.DyadicViolation, "bias.scale_exp != weight.scale_exp + input.scale_exp")
	}
	return nil
}
