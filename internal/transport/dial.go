package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/1ureka/ucctl/internal/util"
)

// DefaultPort is the mixer's TCP control port.
const DefaultPort = 49162

// Dial connects to the control port at addr, binds the UDP socket named by
// opts.UDPAddr and returns a running driver. ctx and opts.ConnectTimeout
// bound the connect only; the driver runs until Close or a fatal error.
func Dial(ctx context.Context, addr string, opts Options) (*Driver, error) {
	dialer := net.Dialer{Timeout: opts.ConnectTimeout}

	util.LogDebug("dialing %s", addr)
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	udp, err := ListenUDP(opts.UDPAddr)
	if err != nil {
		conn.Close()
		return nil, err
	}

	util.LogInfo("connected to %s, UDP listening on port %d", conn.RemoteAddr(), udp.Port())
	return New(context.WithoutCancel(ctx), conn, udp, opts), nil
}
