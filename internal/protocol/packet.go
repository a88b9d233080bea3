// Package protocol defines the UC wire format: the packet variants spoken
// by the mixer, their byte-level codec, and the stream framer that
// reassembles them from a TCP byte stream.
package protocol

import "fmt"

// Magic is the fixed 4-byte prefix of every frame ("UC" + version 0x0001).
var Magic = [4]byte{'U', 'C', 0x00, 0x01}

// HeaderSize is the fixed envelope size: Magic(4) + Size(2).
const HeaderSize = 6

// prefixSize is the shared body prefix: Tag(2) + AddressPair(4).
const prefixSize = 6

// Well-known routing pairs used by the reference client.
var (
	ControlAddress = AddressPair{A: 0x68, B: 0x6a} // JM, PV, KA, FR traffic
	HelloAddress   = AddressPair{A: 0x00, B: 0x66} // UM registration
)

// AddressPair is the routing tag carried by every packet. It is opaque to
// the client and copied verbatim between requests and responses.
type AddressPair struct {
	A uint16
	B uint16
}

func (ap AddressPair) String() string {
	return fmt.Sprintf("%#02x/%#02x", ap.A, ap.B)
}

// Kind identifies one of the packet variants.
type Kind uint8

const (
	KindJSON Kind = iota + 1
	KindHello
	KindKeepAlive
	KindParamValue
	KindFileRequest
	KindCompressed
	KindRawPayload
	KindParamList
)

// kindCodes is the single source of truth for the two-byte wire codes.
var kindCodes = map[Kind]string{
	KindJSON:        "JM",
	KindHello:       "UM",
	KindKeepAlive:   "KA",
	KindParamValue:  "PV",
	KindFileRequest: "FR",
	KindCompressed:  "ZM",
	KindRawPayload:  "PS",
	KindParamList:   "PL",
}

// codeKinds is derived from kindCodes.
var codeKinds = func() map[string]Kind {
	m := make(map[string]Kind, len(kindCodes))
	for k, code := range kindCodes {
		m[code] = k
	}
	return m
}()

// CodeMeterStream tags the UDP meter broadcasts. Frames carrying it are
// valid but intentionally decode to no packet.
const CodeMeterStream = "MS"

// Code returns the two-byte wire code of k, or "" for an unknown kind.
func (k Kind) Code() string { return kindCodes[k] }

func (k Kind) String() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// KindOf looks up the variant for a two-byte wire code.
func KindOf(code string) (Kind, bool) {
	k, ok := codeKinds[code]
	return k, ok
}

// AllKinds lists every variant in wire-code order of declaration.
func AllKinds() []Kind {
	return []Kind{
		KindJSON, KindHello, KindKeepAlive, KindParamValue,
		KindFileRequest, KindCompressed, KindRawPayload, KindParamList,
	}
}

// Packet is the closed set of UC packet variants. Only the types in this
// package implement it.
type Packet interface {
	Kind() Kind
	Address() AddressPair
	packet()
}

// JSONMessage (JM) carries a JSON-encoded control message.
type JSONMessage struct {
	AP   AddressPair
	Body string
}

// Hello (UM) announces the UDP port the client listens on.
type Hello struct {
	AP      AddressPair
	UDPPort uint16
}

// KeepAlive (KA) has no payload.
type KeepAlive struct {
	AP AddressPair
}

// ParamValue (PV) assigns a float value to a named setting.
type ParamValue struct {
	AP    AddressPair
	Name  string
	Value float32
}

// FileRequest (FR) queries a file or resource.
type FileRequest struct {
	AP     AddressPair
	Number uint16
	Body   string
}

// CompressedMessage (ZM) carries a raw-deflate state blob. See
// DecodeCompressed.
type CompressedMessage struct {
	AP      AddressPair
	Tag     uint32
	Payload []byte
}

// RawPayload (PS) carries opaque bytes.
type RawPayload struct {
	AP   AddressPair
	Body []byte
}

// ParamList (PL) is a named list of strings.
type ParamList struct {
	AP    AddressPair
	Name  string
	Items []string
}

func (JSONMessage) Kind() Kind       { return KindJSON }
func (Hello) Kind() Kind             { return KindHello }
func (KeepAlive) Kind() Kind         { return KindKeepAlive }
func (ParamValue) Kind() Kind        { return KindParamValue }
func (FileRequest) Kind() Kind       { return KindFileRequest }
func (CompressedMessage) Kind() Kind { return KindCompressed }
func (RawPayload) Kind() Kind        { return KindRawPayload }
func (ParamList) Kind() Kind         { return KindParamList }

func (p JSONMessage) Address() AddressPair       { return p.AP }
func (p Hello) Address() AddressPair             { return p.AP }
func (p KeepAlive) Address() AddressPair         { return p.AP }
func (p ParamValue) Address() AddressPair        { return p.AP }
func (p FileRequest) Address() AddressPair       { return p.AP }
func (p CompressedMessage) Address() AddressPair { return p.AP }
func (p RawPayload) Address() AddressPair        { return p.AP }
func (p ParamList) Address() AddressPair         { return p.AP }

func (JSONMessage) packet()       {}
func (Hello) packet()             {}
func (KeepAlive) packet()         {}
func (ParamValue) packet()        {}
func (FileRequest) packet()       {}
func (CompressedMessage) packet() {}
func (RawPayload) packet()        {}
func (ParamList) packet()         {}

// Text decompresses the payload. See DecodeCompressed.
func (p CompressedMessage) Text() (string, error) {
	return DecodeCompressed(p.Payload)
}
