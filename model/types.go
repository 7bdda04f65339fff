// Package model holds the data types shared across the analyzer,
// converter, calibrator, and verifier: tensor specs, layer headers, and
// closed-interval ranges (spec §3 "Tensor specification", "Layer header",
// "Range").
package model

import "github.com/cqcert/cqcert/fixed"

// TensorSpec describes the fixed-point encoding of one tensor crossing the
// core. Every tensor that crosses the core must have IsSymmetric == true;
// asymmetric input is a fatal fault (spec §3 Invariants).
type TensorSpec struct {
	ScaleExp     int8
	Format       fixed.Format
	IsSymmetric  bool
}

// Scale returns S = 2^ScaleExp as a float64.
func (t TensorSpec) Scale() float64 {
	return scaleOf(t.ScaleExp)
}

func scaleOf(exp int8) float64 {
	if exp >= 0 {
		return float64(int64(1) << uint(exp))
	}
	// Negative exponents are not used by this spec (scale exponents are in
	// [0,31]) but the reciprocal form keeps the function total.
	return 1.0 / float64(int64(1)<<uint(-exp))
}

// LayerKind enumerates the layer kinds this spec models. Only Linear and
// ReLU are in scope (spec §4.B, §1 Non-goals); the others are recognized so
// a layer stream can be validated and rejected rather than silently
// mis-handled.
type LayerKind uint32

const (
	LayerLinear LayerKind = iota
	LayerConv2D
	LayerReLU
	LayerSoftmax
	LayerMaxPool
	LayerAvgPool
)

// Supported reports whether this spec's analyzer models the kind directly
// (Linear and ReLU only).
func (k LayerKind) Supported() bool {
	return k == LayerLinear || k == LayerReLU
}

func (k LayerKind) String() string {
	switch k {
	case LayerLinear:
		return "linear"
	case LayerConv2D:
		return "conv2d"
	case LayerReLU:
		return "relu"
	case LayerSoftmax:
		return "softmax"
	case LayerMaxPool:
		return "maxpool"
	case LayerAvgPool:
		return "avgpool"
	default:
		return "unknown"
	}
}

// LayerHeader describes one layer's tensor specs, shape, and dyadic
// validity (spec §3 "Layer header").
type LayerHeader struct {
	Index       uint32
	Kind        LayerKind
	WeightSpec  TensorSpec
	InputSpec   TensorSpec
	BiasSpec    TensorSpec
	OutputSpec  TensorSpec
	Rows        uint32
	Cols        uint32
	BiasLen     uint32
	DyadicValid bool
}

// ComputeDyadicValid sets and returns DyadicValid: true iff
// bias.ScaleExp == weight.ScaleExp + input.ScaleExp, the condition that
// lets bias addition happen in the accumulator domain without a multiply.
func (h *LayerHeader) ComputeDyadicValid() bool {
	expected := int(h.WeightSpec.ScaleExp) + int(h.InputSpec.ScaleExp)
	h.DyadicValid = int(h.BiasSpec.ScaleExp) == expected
	return h.DyadicValid
}

// Range is a closed real interval [Lo, Hi].
type Range struct {
	Lo float64
	Hi float64
}

// Magnitude returns max(|Lo|, |Hi|).
func (r Range) Magnitude() float64 {
	lo := r.Lo
	if lo < 0 {
		lo = -lo
	}
	hi := r.Hi
	if hi < 0 {
		hi = -hi
	}
	if lo > hi {
		return lo
	}
	return hi
}

// Width returns Hi - Lo.
func (r Range) Width() float64 {
	return r.Hi - r.Lo
}

// Contains reports whether other is a subset of r. The calibrator's range
// veto ("observed ⊄ safe") is the negation of this condition, computed
// inline in calibrate.TensorStats.Finalize.
func (r Range) Contains(other Range) bool {
	return other.Lo >= r.Lo && other.Hi <= r.Hi
}
