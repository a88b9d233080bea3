package protocol

import (
	"errors"
	"fmt"
	"io"
)

// Framer reassembles frames from a byte stream that may split or merge
// them arbitrarily. Bytes past the current frame are kept for the next
// call. A Framer must be used by one goroutine at a time.
type Framer struct {
	r   io.Reader
	buf buffer
}

// NewFramer returns a Framer reading from r.
func NewFramer(r io.Reader) *Framer {
	return &Framer{r: r}
}

// Buffered returns the number of bytes read but not yet framed.
func (f *Framer) Buffered() int { return f.buf.Len() }

// Next returns the next packet in the stream. A nil packet with a nil
// error means the frame was valid but carried an ignored tag.
//
// io.EOF is returned when the stream ends on a frame boundary. A stream
// ending inside a frame yields ErrTruncated.
func (f *Framer) Next() (Packet, error) {
	if err := f.fill(HeaderSize); err != nil {
		return nil, err
	}

	h, err := ParseHeader(f.buf.Bytes())
	if err != nil {
		return nil, err
	}
	total := HeaderSize + int(h.Size)

	if err := f.fill(total); err != nil {
		return nil, err
	}

	frame := f.buf.Bytes()[HeaderSize:total]
	pkt, err := DecodeFrame(frame)
	f.buf.Consume(total)
	return pkt, err
}

func (f *Framer) fill(n int) error {
	err := f.buf.Fill(f.r, n)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		if f.buf.Len() == 0 {
			return io.EOF
		}
		return fmt.Errorf("%w: stream ended with %d of %d bytes: %w", ErrTruncated, f.buf.Len(), n, io.ErrUnexpectedEOF)
	}
	return err
}
