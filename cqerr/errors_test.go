package cqerr

import "testing"

func TestNew_ErrorMessage(t *testing.T) {
	err := New(ShortBuffer, "buffer too small")
	want := "CQ_ERR_SHORT_BUFFER: buffer too small"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNew_EmptyMessageFallsBackToCode(t *testing.T) {
	err := New(BadHeader, "")
	if err.Error() != string(BadHeader) {
		t.Fatalf("Error() = %q, want %q", err.Error(), BadHeader)
	}
}

func TestIs_MatchesCode(t *testing.T) {
	err := New(OutOfOrder, "wrong stage")
	if !Is(err, OutOfOrder) {
		t.Fatalf("Is() should match the same code")
	}
	if Is(err, SealedContext) {
		t.Fatalf("Is() should not match a different code")
	}
}

func TestIs_NonCQErrorIsFalse(t *testing.T) {
	if Is(fmtError("plain"), OutOfOrder) {
		t.Fatalf("Is() must be false for a non-CQError")
	}
}

type fmtError string

func (e fmtError) Error() string { return string(e) }
