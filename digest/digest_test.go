package digest

import (
	"encoding/hex"
	"testing"
)

func TestSum32_KnownAnswers(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		hex  string
	}{
		{"empty", []byte(""), "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", []byte("abc"), "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Sum32(tc.in)
			want, err := hex.DecodeString(tc.hex)
			if err != nil {
				t.Fatalf("bad test hex: %v", err)
			}
			if hex.EncodeToString(got[:]) != hex.EncodeToString(want) {
				t.Fatalf("Sum32(%q) = %x, want %x", tc.in, got, want)
			}
		})
	}
}

func TestHasher_MatchesSum32OfConcatenation(t *testing.T) {
	parts := [][]byte{[]byte("hello, "), []byte("world")}
	var all []byte
	for _, p := range parts {
		all = append(all, p...)
	}
	want := Sum32(all)

	h := NewHasher()
	for _, p := range parts {
		h.Write(p)
	}
	got := h.Sum()

	if got != want {
		t.Fatalf("incremental hasher mismatch: got %x want %x", got, want)
	}
}

func TestHasher_WriteFloat32sIsLittleEndian(t *testing.T) {
	h1 := NewHasher()
	h1.WriteFloat32s([]float32{1.0, -2.5, 0.0})

	h2 := NewHasher()
	h2.Write([]byte{0x00, 0x00, 0x80, 0x3f}) // 1.0f LE
	h2.Write([]byte{0x00, 0x00, 0x20, 0xc0}) // -2.5f LE
	h2.Write([]byte{0x00, 0x00, 0x00, 0x00}) // 0.0f LE

	if h1.Sum() != h2.Sum() {
		t.Fatalf("WriteFloat32s did not match manual little-endian bytes")
	}
}

func TestSum32_DifferentInputsDifferentDigests(t *testing.T) {
	a := Sum32([]byte("a"))
	b := Sum32([]byte("b"))
	if a == b {
		t.Fatalf("distinct inputs produced identical digests")
	}
}
