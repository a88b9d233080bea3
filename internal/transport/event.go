package transport

import (
	"time"

	"github.com/1ureka/ucctl/internal/protocol"
)

// Direction tells whether a packet was sent or received.
type Direction uint8

const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "out"
	}
	return "in"
}

// Arrow renders the direction the way the console reporter prints it.
func (d Direction) Arrow() string {
	if d == Outbound {
		return "->"
	}
	return "<-"
}

// Channel names the socket a packet travelled on.
type Channel string

const (
	ChannelTCP Channel = "tcp"
	ChannelUDP Channel = "udp"
)

// Event describes one packet written to or decoded from the device.
type Event struct {
	Direction Direction
	Channel   Channel
	Packet    protocol.Packet
	At        time.Time

	inflated *inflated
}

type inflated struct {
	text string
	err  error
}

// NewEvent stamps pkt with the current time. A ZM payload is inflated here,
// once, and every observer of the event shares the result.
func NewEvent(dir Direction, ch Channel, pkt protocol.Packet) Event {
	e := Event{Direction: dir, Channel: ch, Packet: pkt, At: time.Now()}
	if zm, ok := pkt.(protocol.CompressedMessage); ok {
		text, err := zm.Text()
		e.inflated = &inflated{text: text, err: err}
	}
	return e
}

// Inflate returns the decoded text of a ZM packet. Events built by NewEvent
// return the cached result; other ZM events are inflated on each call.
// Packets of any other kind yield "", nil.
func (e Event) Inflate() (string, error) {
	if e.inflated != nil {
		return e.inflated.text, e.inflated.err
	}
	if zm, ok := e.Packet.(protocol.CompressedMessage); ok {
		return zm.Text()
	}
	return "", nil
}

// Observer receives an Event for every packet written to the control
// socket and every packet decoded from either socket. It is called from
// several goroutines and must be safe for concurrent use.
type Observer func(Event)
