package app

import (
	"context"
	"sync"

	"github.com/1ureka/ucctl/internal/protocol"
	"github.com/1ureka/ucctl/internal/transport"
)

// Match selects an inbound packet.
type Match func(protocol.Packet) bool

// MatchKind matches any packet of kind k.
func MatchKind(k protocol.Kind) Match {
	return func(p protocol.Packet) bool { return p.Kind() == k }
}

// MatchParam matches a PV update for name.
func MatchParam(name string) Match {
	return func(p protocol.Packet) bool {
		pv, ok := p.(protocol.ParamValue)
		return ok && pv.Name == name
	}
}

// Replies maintains the waiter table used to hand inbound packets to the
// goroutines blocked in Await.
type Replies struct {
	mu      sync.Mutex
	nextID  uint64
	waiters map[uint64]waiter
}

type waiter struct {
	match Match
	ch    chan protocol.Packet
}

// NewReplies creates an empty table.
func NewReplies() *Replies {
	return &Replies{waiters: make(map[uint64]waiter)}
}

// Observe is a transport.Observer. Each inbound packet completes every
// waiter it matches.
func (r *Replies) Observe(e transport.Event) {
	if e.Direction != transport.Inbound || e.Packet == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, w := range r.waiters {
		if !w.match(e.Packet) {
			continue
		}
		w.ch <- e.Packet // buffered, one send per waiter
		delete(r.waiters, id)
	}
}

// Expect registers match now, so a reply to a request sent afterwards
// cannot be missed. Call Wait on the result.
func (r *Replies) Expect(match Match) *Expectation {
	ch := make(chan protocol.Packet, 1)

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.waiters[id] = waiter{match: match, ch: ch}
	r.mu.Unlock()

	return &Expectation{r: r, id: id, ch: ch}
}

// Await is Expect followed by Wait.
func (r *Replies) Await(ctx context.Context, match Match) (protocol.Packet, error) {
	return r.Expect(match).Wait(ctx)
}

// Expectation is a registered waiter.
type Expectation struct {
	r  *Replies
	id uint64
	ch chan protocol.Packet
}

// Wait blocks until the matching packet arrives or ctx is done.
func (e *Expectation) Wait(ctx context.Context) (protocol.Packet, error) {
	select {
	case p := <-e.ch:
		return p, nil
	case <-ctx.Done():
		e.Cancel()
		return nil, ctx.Err()
	}
}

// Cancel unregisters the waiter. It is a no-op once the waiter completed.
func (e *Expectation) Cancel() {
	e.r.mu.Lock()
	delete(e.r.waiters, e.id)
	e.r.mu.Unlock()
}

// Pending reports the number of registered waiters.
func (r *Replies) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}
