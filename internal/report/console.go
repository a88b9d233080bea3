package report

import (
	"io"
	"sync"

	"github.com/pterm/pterm"

	"github.com/1ureka/ucctl/internal/protocol"
	"github.com/1ureka/ucctl/internal/transport"
)

// Console prints events as colored lines.
type Console struct {
	mu        sync.Mutex
	w         io.Writer
	keepAlive bool
}

// NewConsole writes to w. Keep-alives are hidden unless showKeepAlive is
// set; the heartbeat otherwise fills the screen.
func NewConsole(w io.Writer, showKeepAlive bool) *Console {
	return &Console{w: w, keepAlive: showKeepAlive}
}

// Observe is a transport.Observer.
func (c *Console) Observe(e transport.Event) {
	if !c.keepAlive && e.Packet != nil && e.Packet.Kind() == protocol.KindKeepAlive {
		return
	}

	style := pterm.FgCyan
	if e.Direction == transport.Outbound {
		style = pterm.FgYellow
	}
	summary := describeEvent(e)
	if _, err := e.Inflate(); err != nil {
		style = pterm.FgRed
	}

	line := pterm.Sprintf("%s %s %s %s\n",
		pterm.FgGray.Sprint(e.At.Format("15:04:05.000")),
		style.Sprint(e.Direction.Arrow()),
		pterm.FgGray.Sprint(string(e.Channel)),
		summary,
	)

	c.mu.Lock()
	defer c.mu.Unlock()
	io.WriteString(c.w, line)
}
