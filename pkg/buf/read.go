package buf

import "io"

// ReadFromPool reads exactly n bytes from r into a pooled buffer. On error
// the partially-filled buffer is returned to the pool and the error from
// io.ReadFull is propagated unchanged so callers can distinguish
// io.ErrUnexpectedEOF / io.EOF from other I/O failures.
func ReadFromPool(r io.Reader, n int) (*Buffer, error) {
	b := NewFromPool(n)
	if _, err := io.ReadFull(r, b.Data()); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}
