package transport

import (
	"time"

	"github.com/1ureka/ucctl/internal/protocol"
)

// heartbeatLoop enqueues a keep-alive every interval. It never touches the
// socket itself; the sender writes the packets in queue order.
func (d *Driver) heartbeatLoop(interval time.Duration) {
	defer d.tasks.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.enqueue(protocol.KeepAlive{AP: d.opts.HeartbeatAddress})
		case <-d.ctx.Done():
			return
		}
	}
}
