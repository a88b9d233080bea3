package transport

import (
	"fmt"
	"io"
	"time"

	"github.com/1ureka/ucctl/internal/protocol"
	"github.com/1ureka/ucctl/internal/util"
)

// sendLoop is the single writer of the control socket. It drains the
// queue in order and writes each frame completely before the next one.
// A write error is fatal to the driver.
func (d *Driver) sendLoop() {
	defer d.tasks.Done()

	for {
		pkt, ok := d.queue.pop(d.ctx)
		if !ok {
			return
		}

		data, err := protocol.Encode(pkt)
		if err == nil {
			err = d.writeFrame(data)
		}
		d.pending.Add(-1)
		if err != nil {
			d.fail(fmt.Errorf("transport: send %s: %w", pkt.Kind(), err))
			return
		}

		util.Stats.AddSent(len(data))
		d.emit(Outbound, ChannelTCP, pkt)
	}
}

// writeFrame writes data in full. Cancellation is not checked here so a
// frame handed to the socket is never cut short.
func (d *Driver) writeFrame(data []byte) error {
	if d.opts.WriteTimeout > 0 {
		if err := d.conn.SetWriteDeadline(time.Now().Add(d.opts.WriteTimeout)); err != nil {
			return err
		}
	}
	return writeFull(d.conn, data)
}

func writeFull(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}
