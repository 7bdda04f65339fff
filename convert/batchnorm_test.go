package convert

import (
	"math"
	"testing"

	"github.com/cqcert/cqcert/cqerr"
	"github.com/cqcert/cqcert/faults"
)

func TestFoldBatchNorm_ComputesScaleAndOffset(t *testing.T) {
	var fl faults.Set
	// Single channel, single input feature: gamma=2, beta=1, mean=0, var=3, eps=1
	// invStd = 1/sqrt(4) = 0.5; scale = 2*0.5 = 1; offset = 1 - 0*1 = 1
	bn := BNParams{
		Gamma:        []float32{2.0},
		Beta:         []float32{1.0},
		Mean:         []float32{0.0},
		Var:          []float32{3.0},
		Epsilon:      1.0,
		ChannelCount: 1,
	}
	w := []float32{5.0}
	b := []float32{0.5}

	wFolded, bFolded, rec, err := FoldBatchNorm(w, b, bn, 1, 1, 3, &fl)
	if err != nil {
		t.Fatalf("FoldBatchNorm error: %v", err)
	}
	if math.Abs(float64(wFolded[0])-5.0) > 1e-5 {
		t.Fatalf("wFolded[0] = %v, want 5.0", wFolded[0])
	}
	wantB := 0.5*1.0 + 1.0
	if math.Abs(float64(bFolded[0])-wantB) > 1e-5 {
		t.Fatalf("bFolded[0] = %v, want %v", bFolded[0], wantB)
	}
	if !rec.Occurred {
		t.Fatalf("rec.Occurred should be true after a successful fold")
	}
	if rec.LayerIndex != 3 {
		t.Fatalf("rec.LayerIndex = %d, want 3", rec.LayerIndex)
	}
	if rec.OriginalHash == rec.FoldedHash {
		t.Fatalf("original and folded hashes should differ")
	}
}

func TestFoldBatchNorm_ChannelMismatch(t *testing.T) {
	var fl faults.Set
	bn := BNParams{ChannelCount: 2}
	_, _, _, err := FoldBatchNorm([]float32{1, 2}, []float32{0, 0}, bn, 1, 2, 0, &fl)
	if !cqerr.Is(err, cqerr.DimensionMismatch) {
		t.Fatalf("expected DimensionMismatch error, got %v", err)
	}
}

func TestFoldBatchNorm_NonPositiveVarianceRaisesDivZero(t *testing.T) {
	var fl faults.Set
	bn := BNParams{
		Gamma:        []float32{1.0},
		Beta:         []float32{0.0},
		Mean:         []float32{0.0},
		Var:          []float32{-1.0},
		Epsilon:      0.5,
		ChannelCount: 1,
	}
	_, _, _, err := FoldBatchNorm([]float32{1.0}, []float32{0.0}, bn, 1, 1, 0, &fl)
	if err == nil {
		t.Fatalf("expected an error for non-positive variance+epsilon")
	}
	if !fl.Has(faults.DivZero) {
		t.Fatalf("non-positive variance+epsilon must raise DivZero")
	}
}

func TestFoldBatchNorm_NilBiasDefaultsToZero(t *testing.T) {
	var fl faults.Set
	bn := BNParams{
		Gamma:        []float32{1.0},
		Beta:         []float32{2.0},
		Mean:         []float32{0.0},
		Var:          []float32{0.0},
		Epsilon:      1.0,
		ChannelCount: 1,
	}
	_, bFolded, _, err := FoldBatchNorm([]float32{1.0}, nil, bn, 1, 1, 0, &fl)
	if err != nil {
		t.Fatalf("FoldBatchNorm error: %v", err)
	}
	if math.Abs(float64(bFolded[0])-2.0) > 1e-5 {
		t.Fatalf("bFolded[0] with nil bias = %v, want 2.0", bFolded[0])
	}
}
