package amf

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"unicode/utf8"
)

// readByte reads a single byte, wrapping short reads as TruncatedStreamError.
func readByte(r io.Reader, op string) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, &TruncatedStreamError{Op: op, Err: err}
	}
	return buf[0], nil
}

// readBytes reads exactly n bytes, wrapping short reads as TruncatedStreamError.
func readBytes(r io.Reader, n int, op string) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, &TruncatedStreamError{Op: op, Err: err}
	}
	return buf, nil
}

func readUint16(r io.Reader, op string) (uint16, error) {
	b, err := readBytes(r, 2, op)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func readUint32(r io.Reader, op string) (uint32, error) {
	b, err := readBytes(r, 4, op)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func readDouble(r io.Reader, op string) (float64, error) {
	b, err := readBytes(r, 8, op)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// readUTF8 reads an n-byte string and validates it is well-formed UTF-8.
func readUTF8(r io.Reader, n int, op string) (string, error) {
	b, err := readBytes(r, n, op)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", &EncodingError{Op: op, Err: errInvalidUTF8}
	}
	return string(b), nil
}

var errInvalidUTF8 = errors.New("not valid UTF-8")

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func writeUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeDouble(w io.Writer, v float64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	_, err := w.Write(buf[:])
	return err
}

// boundedWriter caps total bytes written across the lifetime of a top-level
// Encode call, independent of whether the destination buffer grows
// geometrically (bytes.Buffer) or is a fixed streaming sink. Spec §4.1, C1.
type boundedWriter struct {
	w       io.Writer
	written int
	limit   int
}

func newBoundedWriter(w io.Writer, limit int) *boundedWriter {
	return &boundedWriter{w: w, limit: limit}
}

func (b *boundedWriter) Write(p []byte) (int, error) {
	if b.limit > 0 && b.written+len(p) > b.limit {
		return 0, &StreamTooLargeError{Limit: b.limit}
	}
	n, err := b.w.Write(p)
	b.written += n
	return n, err
}

// boundedReader caps total bytes read across one top-level Decode call:
// once the cap is reached, further reads fail with StreamTooLargeError,
// so a corrupt length header cannot drive an unbounded read loop. It does
// not bound allocations sized from a length header (readBytes and the
// array readers allocate the declared length before reading). Spec §4.1,
// C1.
type boundedReader struct {
	r     io.Reader
	read  int
	limit int
}

func newBoundedReader(r io.Reader, limit int) *boundedReader {
	return &boundedReader{r: r, limit: limit}
}

func (b *boundedReader) Read(p []byte) (int, error) {
	if b.limit > 0 && b.read >= b.limit {
		return 0, &StreamTooLargeError{Limit: b.limit}
	}
	if b.limit > 0 && b.read+len(p) > b.limit {
		p = p[:b.limit-b.read]
	}
	n, err := b.r.Read(p)
	b.read += n
	return n, err
}
