package analyze

import "github.com/cqcert/cqcert/model"

// PropagateLinear computes the convex hull of the four corner products of
// input and weight ranges, scales by fan-in (the worst-case sum — no
// cancellation is assumed), and adds the bias range. Grounded on
// cq_propagate_range_linear.
func PropagateLinear(inputRange, weightRange, biasRange model.Range, fanIn uint32) model.Range {
	xLo, xHi := inputRange.Lo, inputRange.Hi
	wLo, wHi := weightRange.Lo, weightRange.Hi

	p1 := wLo * xLo
	p2 := wLo * xHi
	p3 := wHi * xLo
	p4 := wHi * xHi

	prodMin, prodMax := p1, p1
	for _, p := range []float64{p2, p3, p4} {
		if p < prodMin {
			prodMin = p
		}
		if p > prodMax {
			prodMax = p
		}
	}

	n := float64(fanIn)
	yLo := prodMin * n
	yHi := prodMax * n

	yLo += biasRange.Lo
	yHi += biasRange.Hi

	return model.Range{Lo: yLo, Hi: yHi}
}

// PropagateReLU clamps both endpoints at zero. Grounded on
// cq_propagate_range_relu.
func PropagateReLU(inputRange model.Range) model.Range {
	lo := inputRange.Lo
	if lo < 0 {
		lo = 0
	}
	hi := inputRange.Hi
	if hi < 0 {
		hi = 0
	}
	return model.Range{Lo: lo, Hi: hi}
}

// WeightRangeOf computes the tightest [min,max] range of a float32 weight
// slice, matching cq_compute_weight_range.
func WeightRangeOf(weights []float32) model.Range {
	if len(weights) == 0 {
		return model.Range{}
	}
	minV := float64(weights[0])
	maxV := float64(weights[0])
	for _, w := range weights[1:] {
		v := float64(w)
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return model.Range{Lo: minV, Hi: maxV}
}
