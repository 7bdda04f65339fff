package analyze

import (
	"math"

	"github.com/cqcert/cqcert/cqerr"
	"github.com/cqcert/cqcert/faults"
)

// Config carries the analyzer's configuration flags: which operator norm
// to use (spec §4.B "the choice is a configuration flag") and the input
// scale exponent used to derive the entry error.
type Config struct {
	Norm         NormKind
	InputScaleExp int8
}

// DefaultConfig returns Frobenius norm with a Q16.16 input scale (exponent
// 16), matching the source's cq_analysis_ctx_init default.
func DefaultConfig() Config {
	return Config{Norm: NormFrobenius, InputScaleExp: 16}
}

// ComputeEntryError returns eps0 = 1/(2*S_in), S_in = 2^InputScaleExp.
// Grounded on cq_compute_entry_error.
func (c Config) ComputeEntryError() float64 {
	scale := math.Ldexp(1.0, int(c.InputScaleExp))
	return 0.5 / scale
}

// Context is the analysis context (spec §3 "Analysis context"): entry
// error, ordered layer contracts, total bound, completion/validity flags,
// and a cumulative fault set. Ownership is strictly linear — the context
// is populated once, sealed, and then read by the calibrator/verifier/
// notary; it never mutates after Finalize succeeds.
type Context struct {
	config Config

	EntryError float64
	Layers     []*LayerContract

	TotalErrorBound float64

	IsComplete bool
	IsValid    bool

	Faults faults.Set

	sealed bool
}

// NewContext creates an empty analysis context; layers are added with
// AppendLayer.
func NewContext(cfg Config) *Context {
	return &Context{
		config:     cfg,
		EntryError: cfg.ComputeEntryError(),
		Layers:     nil,
	}
}

// AppendLayer appends a sealed layer contract to the context. ε_total is
// monotonically nondecreasing as layers are appended (spec §3 Invariants);
// this is enforced here rather than merely hoped for.
func (ctx *Context) AppendLayer(c *LayerContract) error {
	if ctx.sealed {
		return cqerr.New(cqerr.SealedContext, "cannot append layer to a sealed analysis context")
	}
	if c.Stage != StageSealed {
		ctx.Faults.Raise(faults.RangeExceed)
		return cqerr.New(cqerr.OutOfOrder, "layer contract must be sealed before it can be appended")
	}

	prevBound := ctx.EntryError
	if n := len(ctx.Layers); n > 0 {
		prevBound = ctx.Layers[n-1].OutputErrorBound
	}
	if c.OutputErrorBound < prevBound {
		// The recurrence eps_{l+1} = A_l*eps_l + L_l with A_l >= 0 and
		// L_l >= 0 can never decrease the bound; a caller supplying a
		// contract that violates this indicates a construction bug
		// upstream, so it is treated as invalid rather than silently
		// accepted.
		ctx.Faults.Raise(faults.BoundViolation)
		return cqerr.New(cqerr.OutOfOrder, "epsilon_total must be nondecreasing across layers")
	}

	ctx.Layers = append(ctx.Layers, c)
	return nil
}

// Finalize computes the total error bound (the last layer's output bound,
// or the entry error if there are no layers) and seals the context.
// Grounded on cq_compute_total_error.
func (ctx *Context) Finalize() error {
	if ctx.sealed {
		return cqerr.New(cqerr.SealedContext, "analysis context already finalized")
	}

	if len(ctx.Layers) == 0 {
		ctx.TotalErrorBound = ctx.EntryError
		ctx.IsComplete = true
		ctx.IsValid = true
		ctx.sealed = true
		return nil
	}

	ctx.TotalErrorBound = ctx.Layers[len(ctx.Layers)-1].OutputErrorBound

	ctx.IsValid = true
	for _, layer := range ctx.Layers {
		if !layer.IsValid {
			ctx.IsValid = false
			break
		}
	}

	ctx.IsComplete = true
	ctx.sealed = true

	if !ctx.IsValid {
		return cqerr.New(cqerr.Refused, "analysis context has one or more invalid layer contracts")
	}
	return nil
}

// Sealed reports whether Finalize has run.
func (ctx *Context) Sealed() bool {
	return ctx.sealed
}
