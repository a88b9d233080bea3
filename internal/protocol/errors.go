package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrHeaderInvalid      = errors.New("protocol: header magic invalid")
	ErrTruncated          = errors.New("protocol: truncated packet")
	ErrUnsupportedVariant = errors.New("protocol: unsupported packet variant")
	ErrFrameTooLarge      = errors.New("protocol: frame body exceeds 65535 bytes")
	ErrDecompressionBomb  = errors.New("protocol: decompressed payload exceeds limit")
	ErrInvalidText        = errors.New("protocol: payload is not valid UTF-8")
)

// ZMDecodeError reports a compressed payload that could not be turned into
// text. It affects only the packet it came from, never the stream.
type ZMDecodeError struct {
	Err error
}

func (e *ZMDecodeError) Error() string {
	return fmt.Sprintf("protocol: zm decode: %v", e.Err)
}

func (e *ZMDecodeError) Unwrap() error { return e.Err }
