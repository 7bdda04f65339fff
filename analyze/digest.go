package analyze

import (
	"github.com/cqcert/cqcert/cqerr"
	"github.com/cqcert/cqcert/digest"
	"github.com/cqcert/cqcert/internal/wire"
)

// Digest is the analysis digest (spec §3 "Analysis context" digest output,
// §4.B "Digest output"): entry error, total error, layer count, count of
// overflow-safe layers, and a SHA-256 of the serialized layer contracts.
type Digest struct {
	EntryError        float64
	TotalErrorBound   float64
	LayerCount        uint32
	OverflowSafeCount uint32
	LayersHash        [32]byte
}

// GenerateDigest builds the digest from a finalized context. Grounded on
// cq_analysis_digest_generate.
func GenerateDigest(ctx *Context) (Digest, error) {
	if !ctx.Sealed() {
		return Digest{}, cqerr.New(cqerr.OutOfOrder, "analysis context must be finalized before a digest can be generated")
	}

	d := Digest{
		EntryError:      ctx.EntryError,
		TotalErrorBound: ctx.TotalErrorBound,
		LayerCount:      uint32(len(ctx.Layers)),
	}

	for _, l := range ctx.Layers {
		if l.OverflowProof.IsSafe {
			d.OverflowSafeCount++
		}
	}

	if len(ctx.Layers) > 0 {
		d.LayersHash = hashLayerContracts(ctx.Layers)
	}

	return d, nil
}

// hashLayerContracts produces a canonical, fixed-layout serialization of
// every layer contract and hashes it. The layout mirrors the certificate's
// own little-endian wire convention so the hash is reproducible across
// platforms regardless of Go struct padding.
func hashLayerContracts(layers []*LayerContract) [32]byte {
	w := wire.NewWriter(make([]byte, 0, len(layers)*96))
	for _, l := range layers {
		w.PutU32LE(l.Header.Index)
		w.PutU32LE(uint32(l.Header.Kind))
		w.PutFloat64LE(l.InputRange.Lo)
		w.PutFloat64LE(l.InputRange.Hi)
		w.PutFloat64LE(l.WeightRange.Lo)
		w.PutFloat64LE(l.WeightRange.Hi)
		w.PutFloat64LE(l.OutputRange.Lo)
		w.PutFloat64LE(l.OutputRange.Hi)
		w.PutFloat64LE(l.AmpFactor)
		w.PutFloat64LE(l.LocalErrSum)
		w.PutFloat64LE(l.InputErrorBound)
		w.PutFloat64LE(l.OutputErrorBound)
		w.PutU64LE(l.OverflowProof.SafetyMargin)
		if l.OverflowProof.IsSafe {
			w.PutU8(1)
		} else {
			w.PutU8(0)
		}
	}
	return digest.Sum32(w.Bytes())
}

// Bytes serializes the digest itself into a canonical byte form, used by
// the notary to hash it into the certificate's mathematical-core section.
func (d Digest) Bytes() []byte {
	w := wire.NewWriter(make([]byte, 0, 32))
	w.PutFloat64LE(d.EntryError)
	w.PutFloat64LE(d.TotalErrorBound)
	w.PutU32LE(d.LayerCount)
	w.PutU32LE(d.OverflowSafeCount)
	w.PutBytes(d.LayersHash[:])
	return w.Bytes()
}
