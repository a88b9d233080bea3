package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/1ureka/ucctl/internal/protocol"
	"github.com/1ureka/ucctl/internal/util"
)

const maxDatagramSize = 65535

// UDPChannel receives the datagrams the device pushes after the UM
// announcement. Each datagram carries exactly one frame.
type UDPChannel struct {
	conn    net.PacketConn
	limiter *rate.Limiter // throttles decode warnings during meter floods
}

// ListenUDP binds a UDP socket on addr, an ephemeral port when addr is
// empty.
func ListenUDP(addr string) (*UDPChannel, error) {
	if addr == "" {
		addr = ":0"
	}
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen udp %s: %w", addr, err)
	}
	return NewUDPChannel(conn), nil
}

// NewUDPChannel wraps an already bound packet connection.
func NewUDPChannel(conn net.PacketConn) *UDPChannel {
	return &UDPChannel{
		conn:    conn,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Port returns the bound local port.
func (u *UDPChannel) Port() uint16 {
	if addr, ok := u.conn.LocalAddr().(*net.UDPAddr); ok {
		return uint16(addr.Port)
	}
	return 0
}

// Run reads datagrams until ctx is cancelled or the socket is closed, and
// hands every decoded packet to emit. Datagrams that fail to decode are
// counted and skipped. Closing the socket ends Run with a nil error.
func (u *UDPChannel) Run(ctx context.Context, emit func(protocol.Packet)) error {
	stop := context.AfterFunc(ctx, func() { u.conn.Close() })
	defer stop()

	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := u.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("transport: udp read: %w", err)
		}
		util.Stats.AddDatagram()

		pkt, err := parseDatagram(buf[:n])
		if err != nil {
			util.Stats.AddDecodeError()
			if u.limiter.Allow() {
				util.LogWarning("dropping datagram from %v: %v", from, err)
			}
			continue
		}
		if pkt != nil {
			emit(pkt)
		}
	}
}

// Close closes the socket.
func (u *UDPChannel) Close() error {
	return u.conn.Close()
}

// parseDatagram decodes one datagram. A declared size that disagrees with
// the datagram length is logged and the whole remainder is decoded anyway.
func parseDatagram(b []byte) (protocol.Packet, error) {
	h, err := protocol.ParseHeader(b)
	if err != nil {
		return nil, err
	}
	body := b[protocol.HeaderSize:]
	if int(h.Size) != len(body) {
		util.LogDebug("datagram declares %d bytes, carries %d", h.Size, len(body))
	}
	return protocol.DecodeFrame(body)
}
