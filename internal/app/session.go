// Package app contains the top-level orchestration of a mixer session.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/1ureka/ucctl/internal/config"
	"github.com/1ureka/ucctl/internal/metrics"
	"github.com/1ureka/ucctl/internal/mixer"
	"github.com/1ureka/ucctl/internal/monitor"
	"github.com/1ureka/ucctl/internal/protocol"
	"github.com/1ureka/ucctl/internal/report"
	"github.com/1ureka/ucctl/internal/transport"
	"github.com/1ureka/ucctl/internal/util"
)

const shutdownTimeout = 2 * time.Second

// Action runs against a subscribed session. A nil Action watches the
// session until it ends.
type Action func(ctx context.Context, s *Session) error

// Session is what an Action gets to work with.
type Session struct {
	Driver  *transport.Driver
	Mixer   *mixer.Mixer
	replies *Replies
}

// Await blocks until an inbound packet satisfies match. Only packets
// arriving after the call are considered.
func (s *Session) Await(ctx context.Context, match Match) (protocol.Packet, error) {
	return s.replies.Await(ctx, match)
}

// Expect registers match before a request is sent; see Replies.Expect.
func (s *Session) Expect(match Match) *Expectation {
	return s.replies.Expect(match)
}

// Run orchestrates one session:
//  1. Dial the mixer and bind the UDP socket
//  2. Start the monitor and stats reporter when configured
//  3. Subscribe and start the receiver
//  4. Run the action, or watch until interrupted
//  5. Unsubscribe and flush, unless the mixer or the socket ended it
func Run(ctx context.Context, cfg config.Config, action Action) error {
	if cfg.Host == "" {
		return errors.New("app: no mixer host configured")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("app: invalid config: %w", err)
	}

	// ── 1. Observers and dial ──────────────────────────────────────────
	var driver *transport.Driver
	m := metrics.New(func() int {
		if driver == nil {
			return 0
		}
		return driver.QueueLen()
	})
	replies := NewReplies()
	console := report.NewConsole(os.Stdout, cfg.Debug)

	var mon *monitor.Server
	if cfg.MonitorAddr != "" {
		mon = monitor.New(cfg.MonitorAddr, m.Handler())
	}

	observers := []transport.Observer{console.Observe, m.Observe, replies.Observe}
	if mon != nil {
		observers = append(observers, mon.Observe)
	}

	opts := cfg.Options()
	opts.Observer = report.Fanout(observers...)

	d, err := transport.Dial(ctx, cfg.Addr(), opts)
	if err != nil {
		return err
	}
	driver = d
	defer func() {
		if err := d.Close(); err != nil {
			util.LogWarning("close: %v", err)
		}
	}()

	// ── 2. Monitor and stats ───────────────────────────────────────────
	if mon != nil {
		if _, err := mon.Start(); err != nil {
			return err
		}
		defer mon.Close()
	}

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.StatsInterval > 0 {
		util.StartStatsReporter(sessCtx, cfg.StatsInterval)
	}

	// ── 3. Subscribe and receive ───────────────────────────────────────
	if err := d.Subscribe(cfg.Subscription()); err != nil {
		return fmt.Errorf("app: subscribe: %w", err)
	}
	recvDone := d.StartReceiver()
	util.LogSuccess("subscribed as %q (%s)", cfg.Client.Name, cfg.Client.Identifier)

	// ── 4. Action and shutdown ─────────────────────────────────────────
	sess := &Session{Driver: d, Mixer: mixer.New(d), replies: replies}
	runErr := make(chan error, 1)
	go func() {
		if action == nil {
			<-sessCtx.Done()
			runErr <- nil
			return
		}
		runErr <- action(sessCtx, sess)
	}()

	var result error
	select {
	case result = <-runErr:
		shutdown(d)
	case err := <-recvDone:
		cancel()
		<-runErr
		if err != nil {
			result = err
		} else {
			util.LogInfo("session ended by the mixer")
		}
	case <-d.Done():
		cancel()
		<-runErr
		result = d.Err()
	}
	return result
}

// shutdown lets queued commands reach the mixer and ends the
// subscription before the driver is closed.
func shutdown(d *transport.Driver) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := d.Unsubscribe(); err != nil {
		return
	}
	if err := d.Flush(ctx); err != nil {
		util.LogWarning("pending commands not sent: %v", err)
	}
}
