package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Fixed padding written between a name and its value.
const (
	paramValuePadding = 3
	paramListPadding  = 7
)

// Header is the decoded 6-byte frame envelope.
type Header struct {
	Size uint16 // bytes following the envelope
}

// ParseHeader validates the magic of b[:HeaderSize] and extracts the size.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, HeaderSize, len(b))
	}
	if !bytes.Equal(b[:4], Magic[:]) {
		return Header{}, fmt.Errorf("%w: % x", ErrHeaderInvalid, b[:4])
	}
	return Header{Size: binary.LittleEndian.Uint16(b[4:6])}, nil
}

// Size returns the declared header size of p: the number of bytes that
// follow the envelope (tag, address pair and variant body).
func Size(p Packet) (int, error) {
	switch p := p.(type) {
	case JSONMessage:
		return len(p.Body) + 10, nil
	case Hello:
		return 8, nil
	case KeepAlive:
		return 6, nil
	case ParamValue:
		// name + float, then tag/address and padding
		return len(p.Name) + 4 + 2 + 7, nil
	case FileRequest:
		return len(p.Body) + 8, nil
	case CompressedMessage:
		return len(p.Payload) + 10, nil
	case RawPayload:
		return len(p.Body) + 6, nil
	case ParamList:
		n := 6 + len(p.Name) + paramListPadding
		for _, item := range p.Items {
			n += len(item) + 1
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedVariant, p)
	}
}

// Encode serializes p into a complete frame, envelope included.
func Encode(p Packet) ([]byte, error) {
	size, err := Size(p)
	if err != nil {
		return nil, err
	}
	if size > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %s needs %d", ErrFrameTooLarge, p.Kind(), size)
	}

	buf := make([]byte, HeaderSize, HeaderSize+size)
	copy(buf, Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], uint16(size))

	ap := p.Address()
	buf = append(buf, p.Kind().Code()...)
	buf = binary.LittleEndian.AppendUint16(buf, ap.A)
	buf = binary.LittleEndian.AppendUint16(buf, ap.B)

	switch p := p.(type) {
	case JSONMessage:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Body)))
		buf = append(buf, p.Body...)
	case Hello:
		buf = binary.LittleEndian.AppendUint16(buf, p.UDPPort)
	case KeepAlive:
	case ParamValue:
		buf = append(buf, p.Name...)
		buf = append(buf, make([]byte, paramValuePadding)...)
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(p.Value))
	case FileRequest:
		buf = binary.LittleEndian.AppendUint16(buf, p.Number)
		buf = append(buf, p.Body...)
	case CompressedMessage:
		buf = binary.LittleEndian.AppendUint32(buf, p.Tag)
		buf = append(buf, p.Payload...)
	case RawPayload:
		buf = append(buf, p.Body...)
	case ParamList:
		buf = append(buf, p.Name...)
		buf = append(buf, make([]byte, paramListPadding)...)
		for _, item := range p.Items {
			buf = append(buf, item...)
			buf = append(buf, '\n')
		}
	}
	return buf, nil
}

// DecodeFrame decodes a frame body (everything after the envelope). It
// returns a nil Packet for valid frames whose tag is ignored or unknown.
func DecodeFrame(body []byte) (Packet, error) {
	if len(body) < prefixSize {
		return nil, fmt.Errorf("%w: frame body has %d bytes, need %d", ErrTruncated, len(body), prefixSize)
	}
	ap := AddressPair{
		A: binary.LittleEndian.Uint16(body[2:4]),
		B: binary.LittleEndian.Uint16(body[4:6]),
	}
	return Decode(string(body[0:2]), ap, body[prefixSize:])
}

// Decode builds the packet for code from the bytes following the address
// pair. Unknown codes, including CodeMeterStream, yield (nil, nil).
// The returned packet never aliases data.
func Decode(code string, ap AddressPair, data []byte) (Packet, error) {
	kind, ok := KindOf(code)
	if !ok {
		return nil, nil
	}

	switch kind {
	case KindJSON:
		if len(data) < 4 {
			return nil, fmt.Errorf("%w: JM missing length field", ErrTruncated)
		}
		n := binary.LittleEndian.Uint32(data[:4])
		if uint64(n) > uint64(len(data)-4) {
			return nil, fmt.Errorf("%w: JM declares %d bytes, have %d", ErrTruncated, n, len(data)-4)
		}
		return JSONMessage{AP: ap, Body: string(data[4 : 4+int(n)])}, nil

	case KindHello:
		// Captured traffic carries only the port; a leading reserved
		// field is tolerated by reading the last two bytes.
		if len(data) < 2 {
			return nil, fmt.Errorf("%w: UM missing port", ErrTruncated)
		}
		return Hello{AP: ap, UDPPort: binary.LittleEndian.Uint16(data[len(data)-2:])}, nil

	case KindKeepAlive:
		return KeepAlive{AP: ap}, nil

	case KindParamValue:
		tail := 4 + paramValuePadding
		if len(data) < tail {
			return nil, fmt.Errorf("%w: PV has %d bytes, need %d", ErrTruncated, len(data), tail)
		}
		bits := binary.LittleEndian.Uint32(data[len(data)-4:])
		return ParamValue{
			AP:    ap,
			Name:  string(data[:len(data)-tail]),
			Value: math.Float32frombits(bits),
		}, nil

	case KindFileRequest:
		if len(data) < 2 {
			return nil, fmt.Errorf("%w: FR missing number", ErrTruncated)
		}
		return FileRequest{
			AP:     ap,
			Number: binary.LittleEndian.Uint16(data[:2]),
			Body:   string(data[2:]),
		}, nil

	case KindCompressed:
		if len(data) < 4 {
			return nil, fmt.Errorf("%w: ZM missing tag", ErrTruncated)
		}
		return CompressedMessage{
			AP:      ap,
			Tag:     binary.LittleEndian.Uint32(data[:4]),
			Payload: bytes.Clone(data[4:]),
		}, nil

	case KindRawPayload:
		return RawPayload{AP: ap, Body: bytes.Clone(data)}, nil

	case KindParamList:
		return decodeParamList(ap, data)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedVariant, kind)
}

// decodeParamList splits name, padding and newline-terminated items.
// The name ends at the first NUL, which starts the padding.
func decodeParamList(ap AddressPair, data []byte) (Packet, error) {
	end := bytes.IndexByte(data, 0)
	if end < 0 || len(data)-end < paramListPadding {
		return nil, fmt.Errorf("%w: PL missing padding", ErrTruncated)
	}
	pl := ParamList{AP: ap, Name: string(data[:end])}

	rest := data[end+paramListPadding:]
	for len(rest) > 0 {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			pl.Items = append(pl.Items, string(rest))
			break
		}
		pl.Items = append(pl.Items, string(rest[:i]))
		rest = rest[i+1:]
	}
	return pl, nil
}
