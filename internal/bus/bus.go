// Package bus implements the process-wide quote broadcast: a single
// producer (the generator) fans out each Quote to every Control Session's
// own bounded handle.
//
// Chosen variant (spec.md §4.2 invites either): a bounded ingress channel
// fed by the producer, drained by one fan-out goroutine that copies each
// message into every currently-registered subscriber's own bounded
// channel. A full subscriber channel drops that subscriber's copy of the
// message (logged at Debug) instead of blocking the fan-out goroutine, so
// one slow consumer can never stall the producer or any other consumer —
// only its own stream falls behind, which the spec explicitly permits
// ("loss of a slow consumer's messages under back-pressure is
// permitted").
package bus

import (
	"errors"
	"sync"

	"quotestream/internal/flog"
	"quotestream/internal/quote"
)

// ErrClosed is returned by Publish once the bus has been closed.
var ErrClosed = errors.New("bus: closed")

// Handle is a per-session receive endpoint. Messages are copies; closing
// a Handle does not affect the bus or other handles.
type Handle struct {
	ch   chan quote.Quote
	bus  *Bus
	once sync.Once
}

// C returns the channel to range or select over. It is closed when the
// Bus is closed.
func (h *Handle) C() <-chan quote.Quote {
	return h.ch
}

// Close unsubscribes the handle. Safe to call more than once.
func (h *Handle) Close() {
	h.once.Do(func() {
		h.bus.unsubscribe(h)
		close(h.ch)
	})
}

// Bus is the multi-producer (conceptually; one in practice), multi-consumer
// broadcast of Quote messages.
type Bus struct {
	in   chan quote.Quote
	cap  int
	mu   sync.Mutex
	subs map[*Handle]struct{}
	done chan struct{}
}

// New returns a Bus whose ingress channel (the generator's write side) has
// capacity equal to the TickerUniverse size, per spec.md §4.2.
func New(capacity int) *Bus {
	if capacity < 1 {
		capacity = 1
	}
	b := &Bus{
		in:   make(chan quote.Quote, capacity),
		cap:  capacity,
		subs: make(map[*Handle]struct{}),
		done: make(chan struct{}),
	}
	go b.fanOut()
	return b
}

// Publish blocks until the quote is accepted onto the bus's ingress
// channel, or the bus is closed. This is the generator's only suspension
// point other than its cadence sleep.
func (b *Bus) Publish(q quote.Quote) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	select {
	case b.in <- q:
		return nil
	case <-b.done:
		return ErrClosed
	}
}

// Subscribe returns a new Handle whose channel has the same capacity as
// the bus's ingress channel.
func (b *Bus) Subscribe() *Handle {
	h := &Handle{ch: make(chan quote.Quote, b.cap), bus: b}
	b.mu.Lock()
	b.subs[h] = struct{}{}
	b.mu.Unlock()
	return h
}

func (b *Bus) unsubscribe(h *Handle) {
	b.mu.Lock()
	delete(b.subs, h)
	b.mu.Unlock()
}

// Close shuts the bus down: Publish starts failing, and the fan-out
// goroutine closes every subscriber's channel and exits. Quotes still
// queued on the ingress channel are not delivered.
func (b *Bus) Close() {
	close(b.done)
}

func (b *Bus) fanOut() {
	for {
		select {
		case q := <-b.in:
			b.mu.Lock()
			for h := range b.subs {
				select {
				case h.ch <- q:
				default:
					flog.Debugf("bus: dropped quote for %s, subscriber channel full", q.Ticker)
				}
			}
			b.mu.Unlock()
		case <-b.done:
			b.mu.Lock()
			subs := b.subs
			b.subs = make(map[*Handle]struct{})
			b.mu.Unlock()
			for h := range subs {
				h.once.Do(func() { close(h.ch) })
			}
			return
		}
	}
}
