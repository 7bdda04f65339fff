package model

import "testing"

func TestTensorSpec_Scale(t *testing.T) {
	ts := TensorSpec{ScaleExp: 16}
	if ts.Scale() != 65536 {
		t.Fatalf("Scale() = %v, want 65536", ts.Scale())
	}
}

func TestLayerKind_Supported(t *testing.T) {
	if !LayerLinear.Supported() {
		t.Fatalf("LayerLinear should be supported")
	}
	if !LayerReLU.Supported() {
		t.Fatalf("LayerReLU should be supported")
	}
	if LayerConv2D.Supported() {
		t.Fatalf("LayerConv2D should not be supported")
	}
	if LayerSoftmax.Supported() {
		t.Fatalf("LayerSoftmax should not be supported")
	}
}

func TestLayerKind_String(t *testing.T) {
	cases := map[LayerKind]string{
		LayerLinear:  "linear",
		LayerConv2D:  "conv2d",
		LayerReLU:    "relu",
		LayerSoftmax: "softmax",
		LayerMaxPool: "maxpool",
		LayerAvgPool: "avgpool",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}

func TestLayerHeader_ComputeDyadicValid(t *testing.T) {
	hdr := LayerHeader{
		WeightSpec: TensorSpec{ScaleExp: 16},
		InputSpec:  TensorSpec{ScaleExp: 16},
		BiasSpec:   TensorSpec{ScaleExp: 32},
	}
	if !hdr.ComputeDyadicValid() {
		t.Fatalf("expected dyadic validity when bias_exp == weight_exp+input_exp")
	}

	bad := LayerHeader{
		WeightSpec: TensorSpec{ScaleExp: 16},
		InputSpec:  TensorSpec{ScaleExp: 16},
		BiasSpec:   TensorSpec{ScaleExp: 33},
	}
	if bad.ComputeDyadicValid() {
		t.Fatalf("expected dyadic invalidity when scales mismatch")
	}
}

func TestRange_MagnitudeWidthContains(t *testing.T) {
	r := Range{Lo: -3, Hi: 2}
	if r.Magnitude() != 3 {
		t.Fatalf("Magnitude() = %v, want 3", r.Magnitude())
	}
	if r.Width() != 5 {
		t.Fatalf("Width() = %v, want 5", r.Width())
	}
	if !r.Contains(Range{Lo: -1, Hi: 1}) {
		t.Fatalf("expected r to contain a tighter subrange")
	}
	if r.Contains(Range{Lo: -4, Hi: 1}) {
		t.Fatalf("r should not contain a range exceeding its lower bound")
	}
}
