package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"quotestream/internal/flog"
	"quotestream/internal/pkg/buffer"
	"quotestream/internal/quote"
)

// ErrZeroLengthRead is returned when the UDP socket yields an empty
// datagram, treated as a connection-ending condition per spec.md §4.7.
var ErrZeroLengthRead = errors.New("client: zero-length udp read")

// udpReadTimeout bounds each receive attempt, per spec.md §5's "UDP read
// ... 4 s (client)". A timeout surfaces as an ordinary read error, which
// the session treats as a disconnect and retries.
const udpReadTimeout = 4 * time.Second

// receiver owns the client's local UDP socket: it decodes inbound quote
// datagrams, detects the server's UDP source address, and restarts the
// Ping Emitter whenever that address changes. Grounded on the teacher's
// internal/client/udp.go receive loop, stripped of its framing layer
// since this protocol's datagrams are self-delimiting text lines.
type receiver struct {
	conn       *net.UDPConn
	pingPeriod time.Duration
	onQuote    OnQuote

	mu           sync.Mutex
	serverAddr   *net.UDPAddr
	pingerCancel context.CancelFunc
}

func newReceiver(conn *net.UDPConn, pingPeriod time.Duration, onQuote OnQuote) *receiver {
	return &receiver{conn: conn, pingPeriod: pingPeriod, onQuote: onQuote}
}

// run blocks, decoding datagrams and invoking onQuote, until the socket
// errors, yields a zero-length read, or ctx ends.
func (r *receiver) run(ctx context.Context) error {
	defer r.stopPinger()

	bufp := buffer.UPool.Get().(*[]byte)
	defer buffer.UPool.Put(bufp)
	buf := *bufp

	for {
		if err := r.conn.SetReadDeadline(time.Now().Add(udpReadTimeout)); err != nil {
			return fmt.Errorf("client: set udp read deadline: %w", err)
		}
		n, addr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if n == 0 {
			return ErrZeroLengthRead
		}

		r.noteServerAddr(ctx, addr)

		q, err := quote.Decode(buf[:n])
		if err != nil {
			flog.Debugf("client: discarding malformed datagram from %s: %v", addr, err)
			continue
		}
		r.onQuote(q)
	}
}

// noteServerAddr records addr as the server's UDP source address,
// restarting the Ping Emitter whenever it differs from the last one seen.
func (r *receiver) noteServerAddr(ctx context.Context, addr *net.UDPAddr) {
	r.mu.Lock()
	changed := r.serverAddr == nil || r.serverAddr.String() != addr.String()
	r.serverAddr = addr
	r.mu.Unlock()

	if changed {
		flog.Debugf("client: server udp source address is now %s", addr)
		r.restartPinger(ctx, addr)
	}
}

func (r *receiver) restartPinger(ctx context.Context, addr *net.UDPAddr) {
	r.stopPinger()

	pingCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.pingerCancel = cancel
	r.mu.Unlock()

	go runPinger(pingCtx, r.conn, addr, r.pingPeriod)
}

func (r *receiver) stopPinger() {
	r.mu.Lock()
	cancel := r.pingerCancel
	r.pingerCancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
