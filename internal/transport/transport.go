// Package transport drives a UC session with a mixer: a TCP control socket
// written by a single sender goroutine, a periodic keep-alive, a receive
// loop over the framed TCP stream and a UDP listener for datagrams.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1ureka/ucctl/internal/protocol"
	"github.com/1ureka/ucctl/internal/util"
)

// ErrClosed is returned by Send once the driver has been closed or has
// failed.
var ErrClosed = errors.New("transport: driver closed")

const (
	closeGrace = time.Second
	flushPoll  = 5 * time.Millisecond
)

// Options tune a Driver. The zero value disables the heartbeat and write
// deadlines; use DefaultOptions for the device defaults.
type Options struct {
	HeartbeatInterval time.Duration
	HeartbeatAddress  protocol.AddressPair
	WriteTimeout      time.Duration
	ConnectTimeout    time.Duration
	UDPAddr           string // local UDP bind address, ":0" when empty
	Observer          Observer
}

// DefaultOptions returns the timings the device expects.
func DefaultOptions() Options {
	return Options{
		HeartbeatInterval: 2 * time.Second,
		HeartbeatAddress:  protocol.ControlAddress,
		WriteTimeout:      5 * time.Second,
		ConnectTimeout:    5 * time.Second,
	}
}

// Driver owns one control connection and its companion UDP socket.
//
// Send may be called from any goroutine. All writes go through one sender
// goroutine, so frames from concurrent callers never interleave and each
// caller's packets reach the wire in the order it submitted them.
type Driver struct {
	conn    net.Conn
	udp     *UDPChannel
	opts    Options
	queue   *queue
	pending atomic.Int64 // queued or being written

	ctx    context.Context
	cancel context.CancelFunc

	tasks     sync.WaitGroup // sender and heartbeat
	listeners sync.WaitGroup // receiver and UDP loop

	recvOnce sync.Once
	recvDone chan error

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
	closeErr  error
}

// New starts a driver over an established control connection. udp may be
// nil when datagrams are not needed. The driver stops when ctx is
// cancelled, when a write fails or when Close is called.
func New(ctx context.Context, conn net.Conn, udp *UDPChannel, opts Options) *Driver {
	dCtx, dCancel := context.WithCancel(ctx)

	d := &Driver{
		conn:     conn,
		udp:      udp,
		opts:     opts,
		queue:    newQueue(),
		ctx:      dCtx,
		cancel:   dCancel,
		recvDone: make(chan error, 1),
	}

	d.tasks.Add(1)
	go d.sendLoop()

	if opts.HeartbeatInterval > 0 {
		d.tasks.Add(1)
		go d.heartbeatLoop(opts.HeartbeatInterval)
	}

	if udp != nil {
		d.listeners.Add(1)
		go func() {
			defer d.listeners.Done()
			if err := udp.Run(d.ctx, func(p protocol.Packet) { d.emit(Inbound, ChannelUDP, p) }); err != nil {
				util.LogWarning("UDP listener stopped: %v", err)
			}
		}()
	}

	return d
}

// Send validates pkt and queues it for the sender. It never blocks on the
// network. Packets that cannot be encoded are rejected here rather than
// failing the sender later.
func (d *Driver) Send(pkt protocol.Packet) error {
	return d.sendBatch(pkt)
}

// sendBatch validates every packet and queues them as one contiguous run.
// Nothing is queued if any packet is rejected.
func (d *Driver) sendBatch(pkts ...protocol.Packet) error {
	for _, pkt := range pkts {
		n, err := protocol.Size(pkt)
		if err != nil {
			return err
		}
		if n > math.MaxUint16 {
			return fmt.Errorf("%w: %s needs %d", protocol.ErrFrameTooLarge, pkt.Kind(), n)
		}
	}
	if d.ctx.Err() != nil {
		return ErrClosed
	}
	d.enqueue(pkts...)
	return nil
}

func (d *Driver) enqueue(pkts ...protocol.Packet) {
	d.pending.Add(int64(len(pkts)))
	d.queue.push(pkts...)
}

// Flush waits until every packet queued so far has been written, the
// driver stops or ctx is done.
func (d *Driver) Flush(ctx context.Context) error {
	ticker := time.NewTicker(flushPoll)
	defer ticker.Stop()
	for d.pending.Load() > 0 {
		select {
		case <-ticker.C:
		case <-d.ctx.Done():
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe announces the UDP port and then sends the subscription. Both
// packets are queued under one lock so no other caller's packet can sit
// between them.
func (d *Driver) Subscribe(sub protocol.Subscription) error {
	jm, err := sub.Packet()
	if err != nil {
		return fmt.Errorf("transport: subscribe: %w", err)
	}
	return d.sendBatch(protocol.Hello{AP: protocol.HelloAddress, UDPPort: d.UDPPort()}, jm)
}

// Unsubscribe asks the device to stop sending state updates.
func (d *Driver) Unsubscribe() error {
	return d.Send(protocol.Unsubscribe())
}

// RequestList asks the device for the list stored under key, e.g.
// "presets/channel". The answer arrives as a ParamList.
func (d *Driver) RequestList(key string) error {
	return d.Send(protocol.ListRequest(key))
}

// StartReceiver starts the receive loop once and returns a channel that
// yields its final result. A clean close by either side yields nil.
func (d *Driver) StartReceiver() <-chan error {
	d.recvOnce.Do(func() {
		d.listeners.Add(1)
		go func() {
			defer d.listeners.Done()
			d.recvDone <- d.receiveLoop()
			close(d.recvDone)
		}()
	})
	return d.recvDone
}

func (d *Driver) receiveLoop() error {
	framer := protocol.NewFramer(d.conn)
	for {
		pkt, err := framer.Next()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			util.LogInfo("connection closed by device")
			return nil
		case d.ctx.Err() != nil && isClosedConn(err):
			return nil
		default:
			util.Stats.AddDecodeError()
			util.LogError("receive failed: %v", err)
			return fmt.Errorf("transport: receive: %w", err)
		}

		if pkt == nil {
			continue
		}

		if n, err := protocol.Size(pkt); err == nil {
			util.Stats.AddRecv(n + protocol.HeaderSize)
		}
		d.emit(Inbound, ChannelTCP, pkt)
	}
}

// UDPPort is the local port of the UDP socket, 0 without one.
func (d *Driver) UDPPort() uint16 {
	if d.udp == nil {
		return 0
	}
	return d.udp.Port()
}

// QueueLen reports how many packets wait for the sender.
func (d *Driver) QueueLen() int { return d.queue.len() }

// Done is closed once the driver stops accepting packets.
func (d *Driver) Done() <-chan struct{} { return d.ctx.Done() }

// Err returns the error that stopped the driver, if any.
// It blocks until the driver has stopped.
func (d *Driver) Err() error {
	<-d.ctx.Done()
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.err
}

// Close stops the heartbeat and the sender, closes both sockets and waits
// for the listeners to return. Packets still queued are dropped. A write
// already in flight gets closeGrace to finish before the socket is closed
// under it. It is safe to call more than once.
func (d *Driver) Close() error {
	d.closeOnce.Do(func() {
		d.cancel()

		stopped := make(chan struct{})
		go func() {
			d.tasks.Wait()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(closeGrace):
			util.LogWarning("write still in flight after %v, closing socket", closeGrace)
		}

		var errs []error
		if err := d.conn.Close(); err != nil && !isClosedConn(err) {
			errs = append(errs, err)
		}
		if d.udp != nil {
			if err := d.udp.Close(); err != nil && !isClosedConn(err) {
				errs = append(errs, err)
			}
		}
		<-stopped
		d.listeners.Wait()
		d.closeErr = errors.Join(errs...)
	})
	return d.closeErr
}

// fail records the first fatal error and stops the driver.
func (d *Driver) fail(err error) {
	d.errMu.Lock()
	if d.err == nil {
		d.err = err
		util.LogError("%v", err)
	}
	d.errMu.Unlock()
	d.cancel()
}

func (d *Driver) emit(dir Direction, ch Channel, pkt protocol.Packet) {
	if d.opts.Observer == nil {
		return
	}
	d.opts.Observer(NewEvent(dir, ch, pkt))
}

func isClosedConn(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
