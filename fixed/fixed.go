// Package fixed implements the deterministic, integer-only fixed-point
// arithmetic primitives spec §4.A rests on: saturating 32/64-bit arithmetic,
// round-to-nearest-even right shift, Q-format multiply/divide, saturating
// multiply-accumulate, and the overflow pre-check. None of these depend on
// floating-point hardware, so results are bit-identical on any platform
// where signed two's-complement widths are 32 and 64 bits — Go guarantees
// exactly that (spec.S1 "Determinism guarantees").
//
// Grounded on original_source/src/dvm/primitives.c (cq_clamp32,
// cq_add64_sat, cq_round_shift_rne, cq_mul_q16, cq_div_q16, cq_mac_q16,
// cq_overflow_is_safe) and on the teacher's cursor/compactsize style of
// small, independently-tested leaf functions.
package fixed

import "github.com/cqcert/cqcert/faults"

// Format identifies a concrete fixed-point encoding.
type Format uint8

const (
	Q16_16 Format = 0
	Q8_24  Format = 1
)

// FracBits returns the number of fractional bits for the format.
func (f Format) FracBits() uint {
	switch f {
	case Q16_16:
		return 16
	case Q8_24:
		return 24
	default:
		return 0
	}
}

// One returns the fixed-point encoding of the real value 1.0 in this format.
func (f Format) One() int32 {
	return int32(1) << f.FracBits()
}

// ClampToQ32 saturates a 64-bit value to the int32 range, raising Overflow
// or Underflow in faults as appropriate. Grounded on cq_clamp32.
func ClampToQ32(x int64, fl *faults.Set) int32 {
	const max = int64(1<<31 - 1)
	const min = int64(-1 << 31)
	if x > max {
		fl.Raise(faults.Overflow)
		return int32(max)
	}
	if x < min {
		fl.Raise(faults.Underflow)
		return int32(min)
	}
	return int32(x)
}

// AddSat64 computes a+b, saturating to the int64 range. The overflow test
// happens before the arithmetic so no wraparound is ever observed, matching
// cq_add64_sat.
func AddSat64(a, b int64, fl *faults.Set) int64 {
	const maxI64 = int64(1<<63 - 1)
	const minI64 = -maxI64 - 1
	if b > 0 && a > maxI64-b {
		fl.Raise(faults.Overflow)
		return maxI64
	}
	if b < 0 && a < minI64-b {
		fl.Raise(faults.Underflow)
		return minI64
	}
	return a + b
}

// SubSat64 computes a-b, saturating to the int64 range, matching
// cq_sub64_sat.
func SubSat64(a, b int64, fl *faults.Set) int64 {
	const maxI64 = int64(1<<63 - 1)
	const minI64 = -maxI64 - 1
	if b < 0 && a > maxI64+b {
		fl.Raise(faults.Overflow)
		return maxI64
	}
	if b > 0 && a < minI64+b {
		fl.Raise(faults.Underflow)
		return minI64
	}
	return a - b
}

// RoundShiftRNE computes x / 2^shift with round-half-to-even, saturating
// the result to int32. shift must be in [0,62]; shift >= 63 raises Overflow
// and returns 0, matching cq_round_shift_rne's guard (the source rejects
// shift > 62, i.e. treats 63+ as invalid — 62 itself is the largest shift
// for which a signed 64-bit divisor 2^62 and its negation both fit in
// int64).
func RoundShiftRNE(x int64, shift uint, fl *faults.Set) int32 {
	if shift > 62 {
		fl.Raise(faults.Overflow)
		return 0
	}
	if shift == 0 {
		return ClampToQ32(x, fl)
	}

	divisor := int64(1) << shift
	half := divisor / 2

	quot := x / divisor
	rem := x % divisor

	switch {
	case rem > half:
		quot++
	case rem < -half:
		quot--
	case rem == half:
		quot += quot & 1
	case rem == -half:
		quot -= quot & 1
	}

	return ClampToQ32(quot, fl)
}

// MulQ multiplies two Q-format values in the given format, rounding the
// wide 64-bit product with RoundShiftRNE. Grounded on cq_mul_q16.
func MulQ(a, b int32, f Format, fl *faults.Set) int32 {
	wide := int64(a) * int64(b)
	return RoundShiftRNE(wide, f.FracBits(), fl)
}

// DivQ divides a by b in Q-format with RNE remainder handling. Division by
// zero raises DivZero and returns 0. Grounded on cq_div_q16.
func DivQ(a, b int32, f Format, fl *faults.Set) int32 {
	if b == 0 {
		fl.Raise(faults.DivZero)
		return 0
	}

	wideA := int64(a) << f.FracBits()
	quot := wideA / int64(b)
	rem := wideA % int64(b)

	absB := int64(b)
	if absB < 0 {
		absB = -absB
	}

	absRem := rem
	if absRem < 0 {
		absRem = -absRem
	}

	step := int64(1)
	if (wideA < 0) != (b < 0) {
		step = -1
	}

	switch {
	case 2*absRem > absB:
		quot += step
	case 2*absRem == absB:
		if quot&1 != 0 {
			quot += step
		}
	}

	return ClampToQ32(quot, fl)
}

// MAC performs a saturating multiply-accumulate: *acc += a*b. Grounded on
// cq_mac_q16; the product a*b always fits in int64 since a and b are each
// at most 32 bits wide, so only the accumulation needs the saturation
// check.
func MAC(acc *int64, a, b int32, fl *faults.Set) {
	product := int64(a) * int64(b)
	*acc = AddSat64(*acc, product, fl)
}

// AccToQ finalizes an accumulator value into the given Q format via a
// saturating RNE shift, matching cq_acc_to_q16.
func AccToQ(acc int64, f Format, fl *faults.Set) int32 {
	return RoundShiftRNE(acc, f.FracBits(), fl)
}

// SRA32 is a named portable arithmetic right shift. Go's >> on a signed
// integer is already defined to be arithmetic (unlike C, where it is
// implementation-defined), but the primitive is kept as an explicit,
// independently-tested function so call sites read identically to the
// source's cq_sra32/cq_sra64 and a future non-native backend cannot change
// shift semantics silently.
func SRA32(v int32, s uint) int32 {
	return v >> s
}

// SRA64 is the 64-bit counterpart of SRA32.
func SRA64(v int64, s uint) int64 {
	return v >> s
}
