// Package analyze implements the static analyzer ("The Theorist", spec
// §4.B): pre-inference interval arithmetic, operator-norm amplification
// factors, the error recurrence, and the overflow-safety proof for each
// layer, none of which run any inference. Grounded on
// original_source/src/analyze/analyze.c.
package analyze

import (
	"math"

	"github.com/cqcert/cqcert/faults"
	"github.com/cqcert/cqcert/fixed"
	"github.com/cqcert/cqcert/model"
)

// Stage is the per-layer-contract state machine: empty -> ranged -> normed
// -> errored -> overflow-proven -> sealed. A contract may only reach Sealed
// when every prior stage succeeded (spec §3 "State machine").
type Stage uint8

const (
	StageEmpty Stage = iota
	StageRanged
	StageNormed
	StageErrored
	StageOverflowProven
	StageSealed
	StageInvalid
)

// NormKind selects the operator-norm upper bound used for a layer's
// amplification factor (spec §4.B "Norm computation").
type NormKind uint8

const (
	NormFrobenius NormKind = iota // default: looser but cheap
	NormInducedLInf
)

// LayerContract accumulates everything the analyzer derives for one layer
// (spec §3 "Layer contract").
type LayerContract struct {
	Header model.LayerHeader

	WeightRange model.Range
	InputRange  model.Range
	OutputRange model.Range

	AmpFactor float64

	WeightErrContrib float64
	BiasErrContrib   float64
	ProjectionErr    float64
	LocalErrSum      float64

	InputErrorBound  float64
	OutputErrorBound float64

	OverflowProof fixed.OverflowProof

	Stage   Stage
	IsValid bool
}

// NewLayerContract starts a fresh, empty contract for the given header.
func NewLayerContract(hdr model.LayerHeader) *LayerContract {
	return &LayerContract{Header: hdr, AmpFactor: 1.0, Stage: StageEmpty}
}

func (c *LayerContract) invalidate() {
	c.Stage = StageInvalid
	c.IsValid = false
}

// SetRanges computes the output range for the layer given its input, weight
// and bias ranges and fan-in, advancing the contract to StageRanged. Only
// Linear and ReLU layer kinds are supported; anything else invalidates the
// contract (spec §1 Non-goals: "other activations or pooling...the
// analyzer refuses them").
func (c *LayerContract) SetRanges(inputRange, weightRange, biasRange model.Range, fanIn uint32, fl *faults.Set) {
	if c.Stage != StageEmpty {
		c.invalidate()
		return
	}

	c.InputRange = inputRange
	c.WeightRange = weightRange

	switch c.Header.Kind {
	case model.LayerLinear:
		c.OutputRange = PropagateLinear(inputRange, weightRange, biasRange, fanIn)
	case model.LayerReLU:
		c.OutputRange = PropagateReLU(inputRange)
	default:
		c.invalidate()
		return
	}

	c.Stage = StageRanged
}

// SetNorm records the amplification factor A_l computed by the caller
// (via Frobenius or induced-L∞ norm) and advances to StageNormed.
func (c *LayerContract) SetNorm(ampFactor float64) {
	if c.Stage != StageRanged {
		c.invalidate()
		return
	}
	if math.IsNaN(ampFactor) || math.IsInf(ampFactor, 0) {
		c.invalidate()
		return
	}
	c.AmpFactor = ampFactor
	c.Stage = StageNormed
}

// SetErrorContributions computes weight/bias/projection error contributions
// and the local sum, advancing to StageErrored. weightScale and outputScale
// are S_w = 2^s_w and S_out = 2^s_out; inputScale is S_x, used for the
// dyadic bias-error term 1/(2*S_w*S_x).
func (c *LayerContract) SetErrorContributions(weightScale, inputScale, outputScale, maxInputNorm float64) {
	if c.Stage != StageNormed {
		c.invalidate()
		return
	}
	if weightScale <= 0 || inputScale <= 0 || outputScale <= 0 {
		c.invalidate()
		return
	}

	c.WeightErrContrib = (0.5 / weightScale) * maxInputNorm
	c.BiasErrContrib = 0.5 / (weightScale * inputScale)
	c.ProjectionErr = 0.5 / outputScale
	c.LocalErrSum = c.WeightErrContrib + c.BiasErrContrib + c.ProjectionErr

	c.Stage = StageErrored
}

// ApplyRecurrence computes the output error bound
// eps_{l+1} = A_l * eps_l + L_l from the inherited input bound. It leaves
// the contract at StageErrored; SetOverflowProof is the next transition.
func (c *LayerContract) ApplyRecurrence(inputErrorBound float64) {
	if c.Stage != StageErrored {
		c.invalidate()
		return
	}
	c.InputErrorBound = inputErrorBound
	c.OutputErrorBound = c.AmpFactor*inputErrorBound + c.LocalErrSum
}

// SetOverflowProof records the overflow-safety proof for this layer's
// accumulator and advances to StageOverflowProven. A proof with
// IsSafe == false makes the contract invalid.
func (c *LayerContract) SetOverflowProof(proof fixed.OverflowProof, fl *faults.Set) {
	if c.Stage != StageErrored {
		c.invalidate()
		return
	}
	c.OverflowProof = proof
	if !proof.IsSafe {
		fl.Raise(faults.Overflow)
		c.invalidate()
		return
	}
	c.Stage = StageOverflowProven
}

// Seal finalizes the contract. It may only succeed when every prior stage
// completed and the overflow proof was safe and dyadic validity holds.
func (c *LayerContract) Seal() bool {
	if c.Stage != StageOverflowProven {
		c.invalidate()
		return false
	}
	if !c.Header.DyadicValid {
		c.invalidate()
		return false
	}
	c.Stage = StageSealed
	c.IsValid = true
	return true
}
