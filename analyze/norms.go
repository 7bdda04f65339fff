package analyze

import "math"

// FrobeniusNorm computes sqrt(sum(w_ij^2)), the default (looser but cheap)
// amplification-factor bound. Grounded on cq_frobenius_norm.
func FrobeniusNorm(weights []float32, rows, cols int) float64 {
	if len(weights) == 0 || rows == 0 || cols == 0 {
		return 0.0
	}
	sumSq := 0.0
	count := rows * cols
	for i := 0; i < count; i++ {
		w := float64(weights[i])
		sumSq += w * w
	}
	return math.Sqrt(sumSq)
}

// InducedLInfNorm computes max_i sum_j |w_ij|, the tight bound for linear
// layers feeding a ReLU. Grounded on cq_row_sum_norm.
func InducedLInfNorm(weights []float32, rows, cols int) float64 {
	if len(weights) == 0 || rows == 0 || cols == 0 {
		return 0.0
	}
	maxRowSum := 0.0
	for i := 0; i < rows; i++ {
		rowSum := 0.0
		for j := 0; j < cols; j++ {
			w := float64(weights[i*cols+j])
			if w < 0 {
				w = -w
			}
			rowSum += w
		}
		if rowSum > maxRowSum {
			maxRowSum = rowSum
		}
	}
	return maxRowSum
}

// AmpFactor dispatches to the configured norm kind.
func AmpFactor(kind NormKind, weights []float32, rows, cols int) float64 {
	if kind == NormInducedLInf {
		return InducedLInfNorm(weights, rows, cols)
	}
	return FrobeniusNorm(weights, rows, cols)
}
