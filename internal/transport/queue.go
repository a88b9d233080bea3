package transport

import (
	"context"
	"sync"

	"github.com/1ureka/ucctl/internal/protocol"
)

// queue is an unbounded FIFO of outbound packets. Any number of goroutines
// may push; a single consumer pops.
type queue struct {
	mu     sync.Mutex
	items  []protocol.Packet
	signal chan struct{}
}

func newQueue() *queue {
	return &queue{signal: make(chan struct{}, 1)}
}

// push appends pkts as one contiguous run and wakes the consumer. It never
// blocks on the consumer.
func (q *queue) push(pkts ...protocol.Packet) {
	q.mu.Lock()
	q.items = append(q.items, pkts...)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// pop blocks until a packet is available or ctx is done.
func (q *queue) pop(ctx context.Context) (protocol.Packet, bool) {
	for {
		if ctx.Err() != nil {
			return nil, false
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			pkt := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return pkt, true
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
