// Package report turns driver events into console lines and JSON records.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/1ureka/ucctl/internal/protocol"
	"github.com/1ureka/ucctl/internal/transport"
)

// maxInline bounds how much of a long body is shown on one console line.
const maxInline = 160

// Describe renders pkt as a single human readable line. A ZM packet shows
// its decoded text, or the decode error next to the raw fields.
func Describe(pkt protocol.Packet) string {
	return describeEvent(transport.Event{Packet: pkt})
}

// describeEvent is Describe using the event's inflated ZM text.
func describeEvent(e transport.Event) string {
	switch p := e.Packet.(type) {
	case protocol.JSONMessage:
		return fmt.Sprintf("JM %s %s", p.AP, truncate(p.Body))
	case protocol.Hello:
		return fmt.Sprintf("UM %s udp port %d", p.AP, p.UDPPort)
	case protocol.KeepAlive:
		return fmt.Sprintf("KA %s", p.AP)
	case protocol.ParamValue:
		return fmt.Sprintf("PV %s %s = %s", p.AP, p.Name, formatValue(p.Value))
	case protocol.FileRequest:
		return fmt.Sprintf("FR %s #%d %s", p.AP, p.Number, truncate(strconv.Quote(p.Body)))
	case protocol.CompressedMessage:
		text, err := e.Inflate()
		if err != nil {
			return fmt.Sprintf("ZM %s tag=%d %d bytes [%v]", p.AP, p.Tag, len(p.Payload), err)
		}
		return fmt.Sprintf("ZM %s tag=%d %s", p.AP, p.Tag, truncate(text))
	case protocol.RawPayload:
		return fmt.Sprintf("PS %s %d bytes", p.AP, len(p.Body))
	case protocol.ParamList:
		return fmt.Sprintf("PL %s %s [%s]", p.AP, p.Name, strings.Join(p.Items, ", "))
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%T", e.Packet)
	}
}

// Record is the JSON form of an event, as streamed by the monitor.
type Record struct {
	Time      time.Time `json:"time"`
	Direction string    `json:"direction"`
	Channel   string    `json:"channel"`
	Kind      string    `json:"kind"`
	Address   string    `json:"address"`
	Summary   string    `json:"summary"`
	Text      string    `json:"text,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// View builds the Record for e. For ZM packets the full decoded text, or
// the decode error, is carried separately from the summary.
func View(e transport.Event) Record {
	r := Record{
		Time:      e.At,
		Direction: e.Direction.String(),
		Channel:   string(e.Channel),
		Summary:   describeEvent(e),
	}
	if e.Packet == nil {
		return r
	}
	r.Kind = e.Packet.Kind().String()
	r.Address = e.Packet.Address().String()

	if r.Kind == protocol.KindCompressed.String() {
		text, err := e.Inflate()
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Text = text
		}
	}
	return r
}

// Fanout returns an observer that hands each event to every non-nil
// observer in order.
func Fanout(observers ...transport.Observer) transport.Observer {
	var live []transport.Observer
	for _, o := range observers {
		if o != nil {
			live = append(live, o)
		}
	}
	return func(e transport.Event) {
		for _, o := range live {
			o(e)
		}
	}
}

// truncate cuts s to at most maxInline bytes on a rune boundary.
func truncate(s string) string {
	if len(s) <= maxInline {
		return s
	}
	n := maxInline
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}

func formatValue(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', 6, 32)
}
