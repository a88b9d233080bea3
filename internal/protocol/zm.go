package protocol

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"unicode/utf8"
)

// MaxDecompressedSize caps the inflated size of a ZM payload.
const MaxDecompressedSize = 600_000

// zmMarkerSize is the number of leading payload bytes skipped before the
// deflate stream. Their meaning is unknown.
const zmMarkerSize = 2

// DecodeCompressed inflates a ZM payload into text. The payload is a
// 2-byte marker followed by a raw deflate stream. Any failure is returned
// as a *ZMDecodeError.
func DecodeCompressed(payload []byte) (string, error) {
	if len(payload) < zmMarkerSize {
		return "", &ZMDecodeError{Err: fmt.Errorf("%w: payload has %d bytes", ErrTruncated, len(payload))}
	}

	zr := flate.NewReader(bytes.NewReader(payload[zmMarkerSize:]))
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, MaxDecompressedSize+1))
	if err != nil {
		return "", &ZMDecodeError{Err: err}
	}
	if len(out) > MaxDecompressedSize {
		return "", &ZMDecodeError{Err: fmt.Errorf("%w: more than %d bytes", ErrDecompressionBomb, MaxDecompressedSize)}
	}
	if !utf8.Valid(out) {
		return "", &ZMDecodeError{Err: ErrInvalidText}
	}
	return string(out), nil
}
