package protocol

import "io"

const minReadSize = 4 * 1024

// buffer holds bytes read from a stream but not yet consumed. Unread data
// lives in data[off:]; consumed bytes are reclaimed lazily on the next fill.
type buffer struct {
	data []byte
	off  int
}

// Len returns the number of unread bytes.
func (b *buffer) Len() int { return len(b.data) - b.off }

// Bytes returns the unread bytes. The slice is valid until the next fill.
func (b *buffer) Bytes() []byte { return b.data[b.off:] }

// Consume drops n unread bytes.
func (b *buffer) Consume(n int) {
	b.off += n
	if b.off == len(b.data) {
		b.data = b.data[:0]
		b.off = 0
	}
}

// Fill reads from r until at least n bytes are unread. It returns io.EOF
// only when r ends before n bytes are available.
func (b *buffer) Fill(r io.Reader, n int) error {
	for b.Len() < n {
		b.grow(n - b.Len())
		m, err := r.Read(b.data[len(b.data):cap(b.data)])
		b.data = b.data[:len(b.data)+m]
		if err != nil {
			if err == io.EOF && b.Len() >= n {
				return nil
			}
			return err
		}
	}
	return nil
}

// grow makes room for at least n more bytes, compacting first.
func (b *buffer) grow(n int) {
	if b.off > 0 {
		copied := copy(b.data, b.data[b.off:])
		b.data = b.data[:copied]
		b.off = 0
	}
	if n < minReadSize {
		n = minReadSize
	}
	if cap(b.data)-len(b.data) >= n {
		return
	}
	next := make([]byte, len(b.data), len(b.data)+n)
	copy(next, b.data)
	b.data = next
}
