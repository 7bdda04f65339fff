package analyze

import (
	"testing"

	"github.com/cqcert/cqcert/faults"
	"github.com/cqcert/cqcert/fixed"
	"github.com/cqcert/cqcert/model"
)

// sealedLinearContract returns a linear contract driven through every stage
// up to StageOverflowProven; it is ready to seal, and callers call Seal.
func sealedLinearContract(t *testing.T, idx uint32) *LayerContract {
	t.Helper()
	hdr := model.LayerHeader{
		Index: idx,
		Kind:  model.LayerLinear,
		WeightSpec: model.TensorSpec{ScaleExp: 16, Format: fixed.Q16_16, IsSymmetric: true},
		InputSpec:  model.TensorSpec{ScaleExp: 16, Format: fixed.Q16_16, IsSymmetric: true},
		BiasSpec:   model.TensorSpec{ScaleExp: 32, Format: fixed.Q16_16, IsSymmetric: true},
		OutputSpec: model.TensorSpec{ScaleExp: 16, Format: fixed.Q16_16, IsSymmetric: true},
		Rows:       1,
		Cols:       1,
	}
	hdr.ComputeDyadicValid()

	c := NewLayerContract(hdr)
	var fl faults.Set
	c.SetRanges(model.Range{Lo: -1, Hi: 1}, model.Range{Lo: -1, Hi: 1}, model.Range{Lo: 0, Hi: 0}, 1, &fl)
	c.SetNorm(1.0)
	c.SetErrorContributions(65536, 65536, 65536, 1.0)
	c.ApplyRecurrence(1.0 / 131072.0)
	proof := fixed.OverflowPreCheck(1, 1<<20, 1<<20)
	c.SetOverflowProof(proof, &fl)
	return c
}

func TestLayerContract_HappyPathReachesSealed(t *testing.T) {
	c := sealedLinearContract(t, 0)
	if !c.Seal() {
		t.Fatalf("expected Seal to succeed, stage=%d valid=%v", c.Stage, c.IsValid)
	}
	if c.Stage != StageSealed || !c.IsValid {
		t.Fatalf("contract not sealed/valid after Seal: stage=%d valid=%v", c.Stage, c.IsValid)
	}
}

func TestLayerContract_UnsupportedKindInvalidates(t *testing.T) {
	hdr := model.LayerHeader{Kind: model.LayerConv2D}
	c := NewLayerContract(hdr)
	var fl faults.Set
	c.SetRanges(model.Range{}, model.Range{}, model.Range{}, 1, &fl)
	if c.Stage != StageInvalid {
		t.Fatalf("unsupported layer kind should invalidate, got stage=%d", c.Stage)
	}
}

func TestLayerContract_OutOfOrderCallInvalidates(t *testing.T) {
	c := NewLayerContract(model.LayerHeader{Kind: model.LayerLinear})
	// Calling SetNorm before SetRanges violates the state machine.
	c.SetNorm(1.0)
	if c.Stage != StageInvalid {
		t.Fatalf("out-of-order SetNorm should invalidate, got stage=%d", c.Stage)
	}
}

func TestLayerContract_UnsafeOverflowInvalidates(t *testing.T) {
	hdr := model.LayerHeader{Kind: model.LayerLinear}
	hdr.ComputeDyadicValid()
	c := NewLayerContract(hdr)
	var fl faults.Set
	c.SetRanges(model.Range{Lo: -1, Hi: 1}, model.Range{Lo: -1, Hi: 1}, model.Range{Lo: 0, Hi: 0}, 1, &fl)
	c.SetNorm(1.0)
	c.SetErrorContributions(65536, 65536, 65536, 1.0)
	c.ApplyRecurrence(0)

	unsafeProof := fixed.OverflowPreCheck(2, 1<<31, 1<<31)
	c.SetOverflowProof(unsafeProof, &fl)

	if c.Stage != StageInvalid {
		t.Fatalf("unsafe overflow proof should invalidate the contract")
	}
	if !fl.Has(faults.Overflow) {
		t.Fatalf("unsafe overflow proof should raise faults.Overflow")
	}
	if c.Seal() {
		t.Fatalf("Seal must fail on an invalidated contract")
	}
}

func TestLayerContract_NonDyadicFailsSeal(t *testing.T) {
	hdr := model.LayerHeader{
		Kind:       model.LayerLinear,
		WeightSpec: model.TensorSpec{ScaleExp: 16},
		InputSpec:  model.TensorSpec{ScaleExp: 16},
		BiasSpec:   model.TensorSpec{ScaleExp: 99}, // wrong: should be 32
	}
	hdr.ComputeDyadicValid()
	if hdr.DyadicValid {
		t.Fatalf("test fixture error: expected non-dyadic header")
	}

	c := NewLayerContract(hdr)
	var fl faults.Set
	c.SetRanges(model.Range{Lo: -1, Hi: 1}, model.Range{Lo: -1, Hi: 1}, model.Range{Lo: 0, Hi: 0}, 1, &fl)
	c.SetNorm(1.0)
	c.SetErrorContributions(65536, 65536, 65536, 1.0)
	c.ApplyRecurrence(0)
	proof := fixed.OverflowPreCheck(1, 1<<20, 1<<20)
	c.SetOverflowProof(proof, &fl)

	if c.Seal() {
		t.Fatalf("Seal must fail when DyadicValid is false")
	}
}

func TestContext_ThreeLayerRecurrenceMonotone(t *testing.T) {
	cfg := DefaultConfig()
	ctx := NewContext(cfg)

	prevBound := ctx.EntryError
	for i := uint32(0); i < 3; i++ {
		c := sealedLinearContract(t, i)
		if !c.Seal() {
			t.Fatalf("layer %d failed to seal", i)
		}
		if err := ctx.AppendLayer(c); err != nil {
			t.Fatalf("AppendLayer(%d) error: %v", i, err)
		}
		if c.OutputErrorBound < prevBound {
			t.Fatalf("layer %d error bound %v decreased from %v", i, c.OutputErrorBound, prevBound)
		}
		prevBound = c.OutputErrorBound
	}

	if err := ctx.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if !ctx.IsValid || !ctx.IsComplete {
		t.Fatalf("context should be valid and complete after Finalize")
	}
	if ctx.TotalErrorBound != ctx.Layers[len(ctx.Layers)-1].OutputErrorBound {
		t.Fatalf("TotalErrorBound should equal last layer's output bound")
	}
}

func TestContext_AppendAfterSealReturnsError(t *testing.T) {
	ctx := NewContext(DefaultConfig())
	if err := ctx.Finalize(); err != nil {
		t.Fatalf("Finalize on empty context should succeed: %v", err)
	}
	c := sealedLinearContract(t, 0)
	c.Seal()
	if err := ctx.AppendLayer(c); err == nil {
		t.Fatalf("AppendLayer after Finalize must return an error")
	}
}

func TestContext_RejectsUnsealedLayer(t *testing.T) {
	ctx := NewContext(DefaultConfig())
	c := sealedLinearContract(t, 0) // built but not sealed
	if err := ctx.AppendLayer(c); err == nil {
		t.Fatalf("AppendLayer must reject an unsealed contract")
	}
}

func TestConfig_ComputeEntryError(t *testing.T) {
	cfg := Config{InputScaleExp: 16}
	got := cfg.ComputeEntryError()
	want := 1.0 / (2.0 * 65536.0)
	if got != want {
		t.Fatalf("ComputeEntryError = %v, want %v", got, want)
	}
}
