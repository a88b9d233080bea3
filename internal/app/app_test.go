package app

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/1ureka/ucctl/internal/config"
	"github.com/1ureka/ucctl/internal/mixer"
	"github.com/1ureka/ucctl/internal/protocol"
	"github.com/1ureka/ucctl/internal/transport"
	"github.com/1ureka/ucctl/internal/util"
)

func TestMain(m *testing.M) {
	util.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

// fakeMixer accepts one control connection and hands it to serve.
func fakeMixer(t *testing.T, serve func(conn net.Conn, framer *protocol.Framer)) config.Config {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetDeadline(time.Now().Add(10 * time.Second))
		serve(conn, protocol.NewFramer(conn))
	}()

	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	cfg.UDPBind = "127.0.0.1:0"
	cfg.HeartbeatInterval = 0
	cfg.StatsInterval = 0
	return cfg
}

func nextPacket(framer *protocol.Framer) (protocol.Packet, error) {
	for {
		p, err := framer.Next()
		if err != nil || p != nil {
			return p, err
		}
	}
}

func TestRunListAction(t *testing.T) {
	seen := make(chan []protocol.Kind, 1)
	cfg := fakeMixer(t, func(conn net.Conn, framer *protocol.Framer) {
		var kinds []protocol.Kind
		defer func() { seen <- kinds }()
		for {
			p, err := nextPacket(framer)
			if err != nil {
				return
			}
			kinds = append(kinds, p.Kind())

			switch p := p.(type) {
			case protocol.FileRequest:
				reply, _ := protocol.Encode(protocol.ParamList{
					AP:    protocol.ControlAddress,
					Name:  "presets/channel",
					Items: []string{"Vocal", "Kick"},
				})
				conn.Write(reply)
			case protocol.JSONMessage:
				if p.Body == protocol.Unsubscribe().Body {
					return
				}
			}
		}
	})

	var got protocol.ParamList
	err := Run(context.Background(), cfg, List("presets/channel", 5*time.Second, func(pl protocol.ParamList) {
		got = pl
	}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(got.Items, []string{"Vocal", "Kick"}) {
		t.Errorf("items = %v", got.Items)
	}

	want := []protocol.Kind{protocol.KindHello, protocol.KindJSON, protocol.KindFileRequest, protocol.KindJSON}
	select {
	case kinds := <-seen:
		if !reflect.DeepEqual(kinds, want) {
			t.Errorf("mixer saw %v, want %v", kinds, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("mixer never saw the unsubscribe")
	}
}

func TestRunEndsWhenMixerCloses(t *testing.T) {
	cfg := fakeMixer(t, func(conn net.Conn, framer *protocol.Framer) {
		for i := 0; i < 2; i++ {
			if _, err := nextPacket(framer); err != nil {
				return
			}
		}
	})

	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), cfg, nil) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil after the mixer hangs up", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := fakeMixer(t, func(conn net.Conn, framer *protocol.Framer) {
		for {
			if _, err := nextPacket(framer); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunRejectsMissingHost(t *testing.T) {
	if err := Run(context.Background(), config.Default(), nil); err == nil {
		t.Error("Run without host succeeded")
	}
}

func TestRepliesMatchInboundOnly(t *testing.T) {
	r := NewReplies()
	pv := protocol.ParamValue{AP: protocol.ControlAddress, Name: "line/ch1/mute", Value: 1}

	exp := r.Expect(MatchParam("line/ch1/mute"))
	r.Observe(transport.Event{Direction: transport.Outbound, Packet: pv})
	if r.Pending() != 1 {
		t.Fatal("outbound packet completed a waiter")
	}
	r.Observe(transport.Event{Direction: transport.Inbound, Packet: protocol.KeepAlive{}})
	r.Observe(transport.Event{Direction: transport.Inbound, Packet: pv})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := exp.Wait(ctx)
	if err != nil || got != protocol.Packet(pv) {
		t.Errorf("Wait = %#v, %v", got, err)
	}
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d", r.Pending())
	}
}

func TestRepliesWaitHonorsContext(t *testing.T) {
	r := NewReplies()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := r.Await(ctx, MatchKind(protocol.KindParamList)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Await = %v", err)
	}
	if r.Pending() != 0 {
		t.Errorf("waiter left behind")
	}
}

type capture struct{ sent []protocol.Packet }

func (c *capture) Send(p protocol.Packet) error {
	c.sent = append(c.sent, p)
	return nil
}

func TestBypassCycle(t *testing.T) {
	c := &capture{}
	s := &Session{Mixer: mixer.New(c), replies: NewReplies()}

	if err := BypassCycle(time.Millisecond)(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	var values []float32
	for _, p := range c.sent {
		values = append(values, p.(protocol.ParamValue).Value)
	}
	if !reflect.DeepEqual(values, []float32{0, 1, 0}) {
		t.Errorf("bypass values = %v", values)
	}
}

func TestSequenceStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	ran := 0
	step := func(err error) Action {
		return func(context.Context, *Session) error {
			ran++
			return err
		}
	}

	err := Sequence(step(nil), step(boom), step(nil))(context.Background(), &Session{})
	if !errors.Is(err, boom) || ran != 2 {
		t.Errorf("Sequence = %v after %d steps", err, ran)
	}
}
