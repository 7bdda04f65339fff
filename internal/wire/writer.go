package wire

import (
	"encoding/binary"
	"math"
)

// Writer appends little-endian fields to a growable byte buffer. Fields are
// appended in call order, so the caller is responsible for matching the
// fixed-offset layout the certificate documents — Writer itself has no
// notion of field names or offsets, only of byte order.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with buf as its initial backing array,
// preserving any bytes already in buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len reports the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) PutU8(v byte) {
	w.buf = append(w.buf, v)
}

func (w *Writer) PutBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// PutZeros appends n zero bytes, used for reserved fields.
func (w *Writer) PutZeros(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) PutU32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutU64LE(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutFloat64LE(v float64) {
	w.PutU64LE(math.Float64bits(v))
}
