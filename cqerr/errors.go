// Package cqerr defines the structural result-code errors shared across the
// quantization-certificate core. Numerical anomalies flow through faults.Set
// instead; this package is reserved for the "wrong pointer, wrong size,
// incomplete builder" class of errors described in spec §7.
package cqerr

import "fmt"

// Code identifies the structural failure class of a CQError.
type Code string

const (
	NilInput         Code = "CQ_ERR_NIL_INPUT"
	NaNInput         Code = "CQ_ERR_NAN_INPUT"
	DyadicViolation  Code = "CQ_ERR_DYADIC_VIOLATION"
	DimensionMismatch Code = "CQ_ERR_DIMENSION_MISMATCH"
	AsymmetricSpec   Code = "CQ_ERR_ASYMMETRIC_SPEC"
	IncompleteBuilder Code = "CQ_ERR_INCOMPLETE_BUILDER"
	ShortBuffer      Code = "CQ_ERR_SHORT_BUFFER"
	BadHeader        Code = "CQ_ERR_BAD_HEADER"
	SealedContext    Code = "CQ_ERR_SEALED_CONTEXT"
	OutOfOrder       Code = "CQ_ERR_OUT_OF_ORDER"
	Refused          Code = "CQ_ERR_REFUSED"
)

// CQError is the structural error type returned by composite operations.
type CQError struct {
	Code Code
	Msg  string
}

func (e *CQError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// New constructs a *CQError, the sole constructor used throughout the core
// so that every structural failure carries a stable Code callers can switch
// on, mirroring the teacher's txerr/ErrorCode pairing.
func New(code Code, msg string) error {
	return &CQError{Code: code, Msg: msg}
}

// Is reports whether err is a *CQError with the given code.
func Is(err error, code Code) bool {
	ce, ok := err.(*CQError)
	return ok && ce.Code == code
}
