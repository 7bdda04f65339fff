package store

import (
	"testing"

	"github.com/cqcert/cqcert/analyze"
	"github.com/cqcert/cqcert/calibrate"
	"github.com/cqcert/cqcert/certificate"
	"github.com/cqcert/cqcert/fixed"
	"github.com/cqcert/cqcert/verify"
)

func buildTestCertificate(t *testing.T, targetHash [32]byte) *certificate.Certificate {
	t.Helper()
	b := certificate.NewBuilder()
	b.SetFormat(fixed.Q16_16)
	b.SetSourceHash([32]byte{1})
	b.SetBNInfo(false, [32]byte{})
	b.SetAnalysis(analyze.Digest{TotalErrorBound: 0.01})
	b.SetCalibration(calibrate.Digest{})
	b.SetVerification(verify.Digest{TotalErrorMaxMeasured: 0.005})
	b.SetTarget(targetHash, 10, 3)
	cert, err := b.Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	return cert
}

func TestArchive_PutGet(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	targetHash := [32]byte{5, 5, 5}
	cert := buildTestCertificate(t, targetHash)

	if err := a.Put(cert); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, ok, err := a.Get(targetHash)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok {
		t.Fatalf("expected archived certificate to be found")
	}
	if got.MerkleRoot() != cert.MerkleRoot() {
		t.Fatalf("archived certificate merkle root mismatch")
	}
}

func TestArchive_GetMissing(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	_, ok, err := a.Get([32]byte{9, 9})
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Fatalf("expected no certificate for an unarchived hash")
	}
}

func TestArchive_PutOverwrites(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	hash := [32]byte{1}
	first := buildTestCertificate(t, hash)
	if err := a.Put(first); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	b := certificate.NewBuilder()
	b.SetFormat(fixed.Q16_16)
	b.SetSourceHash([32]byte{2})
	b.SetBNInfo(false, [32]byte{})
	b.SetAnalysis(analyze.Digest{TotalErrorBound: 0.02})
	b.SetCalibration(calibrate.Digest{})
	b.SetVerification(verify.Digest{TotalErrorMaxMeasured: 0.001})
	b.SetTarget(hash, 20, 5)
	second, err := b.Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if err := a.Put(second); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, ok, err := a.Get(hash)
	if err != nil || !ok {
		t.Fatalf("Get after overwrite: ok=%v err=%v", ok, err)
	}
	if got.TargetParamCount() != 20 {
		t.Fatalf("expected overwritten certificate, got param count %d", got.TargetParamCount())
	}

	n, err := a.Count()
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if n != 1 {
		t.Fatalf("Count() = %d, want 1 (overwrite must not duplicate the key)", n)
	}
}

func TestArchive_Delete(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	hash := [32]byte{3}
	cert := buildTestCertificate(t, hash)
	if err := a.Put(cert); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := a.Delete(hash); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	_, ok, err := a.Get(hash)
	if err != nil {
		t.Fatalf("Get after delete error: %v", err)
	}
	if ok {
		t.Fatalf("expected certificate to be gone after Delete")
	}
}

func TestArchive_ReopenPersists(t *testing.T) {
	dir := t.TempDir()
	hash := [32]byte{7}

	a, err := Open(dir)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	cert := buildTestCertificate(t, hash)
	if err := a.Put(cert); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	got, ok, err := reopened.Get(hash)
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if got.MerkleRoot() != cert.MerkleRoot() {
		t.Fatalf("reopened archive returned a different certificate")
	}
}
