package protocol_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/1ureka/ucctl/internal/protocol"
)

var ap = protocol.AddressPair{A: 0x68, B: 0x6a}

// samplePackets holds at least one packet per variant, keyed by kind.
func samplePackets() map[protocol.Kind][]protocol.Packet {
	return map[protocol.Kind][]protocol.Packet{
		protocol.KindJSON: {
			protocol.JSONMessage{AP: ap, Body: `{"id":"Subscribe"}`},
			protocol.JSONMessage{AP: ap, Body: ""},
			protocol.JSONMessage{AP: ap, Body: `{"name":"Kanał ✓"}`},
			protocol.JSONMessage{AP: ap, Body: strings.Repeat("x", 60000)},
		},
		protocol.KindHello: {
			protocol.Hello{AP: protocol.HelloAddress, UDPPort: 0xfa70},
			protocol.Hello{AP: protocol.AddressPair{}, UDPPort: 0},
		},
		protocol.KindKeepAlive: {
			protocol.KeepAlive{AP: ap},
			protocol.KeepAlive{AP: protocol.AddressPair{A: 0xffff, B: 0xffff}},
		},
		protocol.KindParamValue: {
			protocol.ParamValue{AP: ap, Name: "global/mixerBypass", Value: 1},
			protocol.ParamValue{AP: ap, Name: "line/ch1/dca/volume", Value: 0.901},
			protocol.ParamValue{AP: ap, Name: "", Value: -3.5},
		},
		protocol.KindFileRequest: {
			protocol.ListRequest("presets/channel"),
			protocol.FileRequest{AP: ap, Number: 0xbeef, Body: ""},
		},
		protocol.KindCompressed: {
			protocol.CompressedMessage{AP: ap, Tag: 0xdeadbeef, Payload: []byte{0x78, 0x9c, 1, 2, 3}},
			protocol.CompressedMessage{AP: ap, Tag: 0, Payload: []byte{}},
		},
		protocol.KindRawPayload: {
			protocol.RawPayload{AP: ap, Body: []byte{0, 1, 2, 0xff}},
			protocol.RawPayload{AP: ap, Body: []byte{}},
		},
		protocol.KindParamList: {
			protocol.ParamList{AP: ap, Name: "presets/channel", Items: []string{"Vocal", "Kick", "Snare"}},
			protocol.ParamList{AP: ap, Name: "empty", Items: nil},
			protocol.ParamList{AP: ap, Name: "blank", Items: []string{""}},
			protocol.ParamList{AP: ap, Name: "", Items: []string{"a", "", "b"}},
		},
	}
}

func decodeAll(t *testing.T, frame []byte) protocol.Packet {
	t.Helper()
	h, err := protocol.ParseHeader(frame)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if int(h.Size) != len(frame)-protocol.HeaderSize {
		t.Fatalf("declared size %d, frame carries %d", h.Size, len(frame)-protocol.HeaderSize)
	}
	pkt, err := protocol.DecodeFrame(frame[protocol.HeaderSize:])
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	return pkt
}

// TestEncodeDecodeRoundTrip verifies decode(encode(p)) == p for every variant.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	for kind, pkts := range samplePackets() {
		for i, pkt := range pkts {
			t.Run(kind.String()+"/"+string(rune('0'+i)), func(t *testing.T) {
				frame, err := protocol.Encode(pkt)
				if err != nil {
					t.Fatalf("Encode failed: %v", err)
				}

				decoded := decodeAll(t, frame)
				if !reflect.DeepEqual(decoded, pkt) {
					t.Errorf("round trip mismatch:\n got  %#v\n want %#v", decoded, pkt)
				}
			})
		}
	}
}

// TestDeclaredSizeMatchesBody checks size == len(frame)-6 and the Size helper.
func TestDeclaredSizeMatchesBody(t *testing.T) {
	for kind, pkts := range samplePackets() {
		for _, pkt := range pkts {
			frame, err := protocol.Encode(pkt)
			if err != nil {
				t.Fatalf("%s: Encode failed: %v", kind, err)
			}
			declared := int(binary.LittleEndian.Uint16(frame[4:6]))
			if declared != len(frame)-protocol.HeaderSize {
				t.Errorf("%s: declared %d, body %d", kind, declared, len(frame)-protocol.HeaderSize)
			}
			size, err := protocol.Size(pkt)
			if err != nil || size != declared {
				t.Errorf("%s: Size() = %d, %v; want %d", kind, size, err, declared)
			}
			if !bytes.Equal(frame[:4], protocol.Magic[:]) {
				t.Errorf("%s: bad magic % x", kind, frame[:4])
			}
			if code := string(frame[6:8]); code != kind.Code() {
				t.Errorf("%s: tag %q", kind, code)
			}
		}
	}
}

// TestEveryKindCovered fails when a variant is added without codec support.
func TestEveryKindCovered(t *testing.T) {
	samples := samplePackets()
	for _, kind := range protocol.AllKinds() {
		if len(samples[kind]) == 0 {
			t.Errorf("no sample packet for %s", kind)
		}
		if got, ok := protocol.KindOf(kind.Code()); !ok || got != kind {
			t.Errorf("KindOf(%q) = %v, %v", kind.Code(), got, ok)
		}
	}
	if len(samples) != len(protocol.AllKinds()) {
		t.Errorf("samples cover %d kinds, AllKinds has %d", len(samples), len(protocol.AllKinds()))
	}
}

func TestParamValueFixture(t *testing.T) {
	pkt := protocol.ParamValue{
		AP:    protocol.AddressPair{A: 0x68, B: 0x6a},
		Name:  "global/mixerBypass",
		Value: 0.0,
	}

	want := []byte{
		'U', 'C', 0x00, 0x01,
		0x1f, 0x00, // 31 = 18 (name) + 13
		'P', 'V',
		0x68, 0x00, 0x6a, 0x00,
	}
	want = append(want, "global/mixerBypass"...)
	want = append(want, 0x00, 0x00, 0x00) // padding
	want = append(want, 0x00, 0x00, 0x00, 0x00)

	frame, err := protocol.Encode(pkt)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(frame, want) {
		t.Fatalf("encoding mismatch:\n got  % x\n want % x", frame, want)
	}
	if got := decodeAll(t, frame); !reflect.DeepEqual(got, pkt) {
		t.Errorf("decoded %#v", got)
	}
}

// TestParamValueCapturedFrame decodes a PV frame captured from a device.
func TestParamValueCapturedFrame(t *testing.T) {
	frame := []byte("UC\x00\x01\x20\x00PVe\x00h\x00line/ch1/dca/volume\x00\x00\x00\xba\xc5\x66\x3f")

	pkt := decodeAll(t, frame)
	pv, ok := pkt.(protocol.ParamValue)
	if !ok {
		t.Fatalf("expected ParamValue, got %T", pkt)
	}
	if pv.Name != "line/ch1/dca/volume" || pv.AP != (protocol.AddressPair{A: 0x65, B: 0x68}) {
		t.Errorf("unexpected packet %#v", pv)
	}
	if pv.Value < 0.9 || pv.Value > 0.91 {
		t.Errorf("Value = %v", pv.Value)
	}

	reencoded, err := protocol.Encode(pv)
	if err != nil || !bytes.Equal(reencoded, frame) {
		t.Errorf("re-encoding mismatch: % x (%v)", reencoded, err)
	}
}

func TestJSONMessageFixture(t *testing.T) {
	pkt := protocol.JSONMessage{AP: ap, Body: `{"id":"Subscribe"}`}

	frame, err := protocol.Encode(pkt)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	body := frame[protocol.HeaderSize+6:]
	if len(body) != 22 {
		t.Errorf("JM body is %d bytes, want 22", len(body))
	}
	if n := binary.LittleEndian.Uint32(body[:4]); n != 18 {
		t.Errorf("JM length field = %d, want 18", n)
	}
	if size := binary.LittleEndian.Uint16(frame[4:6]); size != 28 {
		t.Errorf("header size = %d, want 28", size)
	}
}

// TestHelloCapturedFrame matches the UM frame sent by the iOS remote.
func TestHelloCapturedFrame(t *testing.T) {
	want := []byte{'U', 'C', 0x00, 0x01, 0x08, 0x00, 'U', 'M', 0x00, 0x00, 0x6a, 0x00, 0x70, 0xfa}

	frame, err := protocol.Encode(protocol.Hello{AP: protocol.AddressPair{B: 0x6a}, UDPPort: 0xfa70})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(frame, want) {
		t.Errorf("got % x, want % x", frame, want)
	}
}

func TestDecodeHelloWithReservedField(t *testing.T) {
	pkt, err := protocol.Decode("UM", ap, []byte{0x00, 0x00, 0x39, 0x30})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if hello := pkt.(protocol.Hello); hello.UDPPort != 12345 {
		t.Errorf("UDPPort = %d", hello.UDPPort)
	}
}

func TestDecodeIgnoredTags(t *testing.T) {
	for _, code := range []string{protocol.CodeMeterStream, "BO", "??"} {
		pkt, err := protocol.Decode(code, ap, []byte{1, 2, 3})
		if err != nil || pkt != nil {
			t.Errorf("Decode(%q) = %v, %v; want nil, nil", code, pkt, err)
		}
	}
}

func TestDecodeTruncatedBodies(t *testing.T) {
	testCases := []struct {
		name string
		code string
		data []byte
	}{
		{"JM without length", "JM", []byte{1, 0}},
		{"JM short string", "JM", []byte{5, 0, 0, 0, 'a', 'b'}},
		{"UM without port", "UM", []byte{1}},
		{"PV without value", "PV", []byte{0, 0, 0, 1}},
		{"FR without number", "FR", []byte{1}},
		{"ZM without tag", "ZM", []byte{1, 2}},
		{"PL without padding", "PL", []byte("name")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := protocol.Decode(tc.code, ap, tc.data)
			if !errors.Is(err, protocol.ErrTruncated) {
				t.Errorf("expected ErrTruncated, got %v", err)
			}
		})
	}

	if _, err := protocol.DecodeFrame([]byte("KA\x00")); !errors.Is(err, protocol.ErrTruncated) {
		t.Errorf("short frame body: expected ErrTruncated, got %v", err)
	}
}

func TestParseHeaderRejectsEveryMagicByte(t *testing.T) {
	frame, err := protocol.Encode(protocol.KeepAlive{AP: ap})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		bad := bytes.Clone(frame)
		bad[i] ^= 0xff
		if _, err := protocol.ParseHeader(bad); !errors.Is(err, protocol.ErrHeaderInvalid) {
			t.Errorf("byte %d altered: expected ErrHeaderInvalid, got %v", i, err)
		}
	}
	if _, err := protocol.ParseHeader(frame[:5]); !errors.Is(err, protocol.ErrTruncated) {
		t.Errorf("5-byte header: expected ErrTruncated, got %v", err)
	}
}

func TestEncodeRejectsUnsupportedVariants(t *testing.T) {
	for _, pkt := range []protocol.Packet{nil, &protocol.KeepAlive{AP: ap}} {
		if _, err := protocol.Encode(pkt); !errors.Is(err, protocol.ErrUnsupportedVariant) {
			t.Errorf("Encode(%T): expected ErrUnsupportedVariant, got %v", pkt, err)
		}
	}
}

func TestEncodeRejectsOversizedFrames(t *testing.T) {
	pkt := protocol.RawPayload{AP: ap, Body: make([]byte, 65535)}
	if _, err := protocol.Encode(pkt); !errors.Is(err, protocol.ErrFrameTooLarge) {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}
}

// TestDecodeDoesNotAlias verifies byte payloads are copied out of the frame.
func TestDecodeDoesNotAlias(t *testing.T) {
	frame, err := protocol.Encode(protocol.RawPayload{AP: ap, Body: []byte("original")})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	pkt := decodeAll(t, frame)
	frame[len(frame)-1] = 'X'

	if got := pkt.(protocol.RawPayload).Body; string(got) != "original" {
		t.Errorf("payload aliased: %q", got)
	}
}
