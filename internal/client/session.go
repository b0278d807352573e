// Package client implements the quote-client side of the protocol:
// Disconnected -> Subscribing -> Streaming, per spec.md §4.7. It mirrors
// the server's Control/Applier/Streamer split and is grounded on the
// teacher's internal/client package (dial.go's retry-with-backoff,
// ticker.go's perpetual-ticker shape, udp.go's receive loop), adapted
// from the teacher's multiplexed tnet.Conn/Strm abstraction down to a
// single TCP control connection and a single UDP socket.
package client

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"quotestream/internal/flog"
	"quotestream/internal/quote"
)

// Phase mirrors the server's session.Phase naming for the client side.
type Phase int

const (
	Disconnected Phase = iota
	Subscribing
	Streaming
)

func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "Disconnected"
	case Subscribing:
		return "Subscribing"
	case Streaming:
		return "Streaming"
	default:
		return "Unknown"
	}
}

// Config configures one Session.
type Config struct {
	ServerAddr      string
	LocalUDPAddr    string
	Tickers         []string
	ReconnectPeriod time.Duration
	PingPeriod      time.Duration
}

// OnQuote is called for every quote datagram accepted off the wire.
// Implementations must not block for long: the UDP receive loop calls
// it synchronously.
type OnQuote func(quote.Quote)

// Session owns one client's lifecycle: dialing the server, issuing
// STREAM, and running the UDP receive/ping loop, reconnecting on any
// failure.
type Session struct {
	cfg     Config
	onQuote OnQuote

	mu    sync.Mutex
	phase Phase
}

// Phase reports the session's current state.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// NewSession returns a Session that reports every received quote to onQuote.
func NewSession(cfg Config, onQuote OnQuote) *Session {
	if cfg.ReconnectPeriod == 0 {
		cfg.ReconnectPeriod = 10 * time.Second
	}
	if cfg.PingPeriod == 0 {
		cfg.PingPeriod = 2 * time.Second
	}
	return &Session{cfg: cfg, onQuote: onQuote}
}

// Run drives the reconnect loop until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := s.runOnce(ctx); err != nil {
			flog.Warnf("client: session ended: %v", err)
		}
		s.setPhase(Disconnected)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ReconnectPeriod):
		}
	}
}

// runOnce dials, subscribes, and streams once. Once streaming, it returns
// when ctx ends or the UDP receive loop ends (a read error, including the
// read timeout, or a zero-length datagram); the TCP control connection is
// not watched after the STREAM reply.
func (s *Session) runOnce(ctx context.Context) error {
	s.setPhase(Subscribing)

	conn, err := dial(s.cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", s.cfg.ServerAddr, err)
	}
	defer conn.Close()

	localUDP, err := net.ResolveUDPAddr("udp", s.cfg.LocalUDPAddr)
	if err != nil {
		return fmt.Errorf("client: resolve local udp addr %s: %w", s.cfg.LocalUDPAddr, err)
	}
	udpConn, err := net.ListenUDP("udp", localUDP)
	if err != nil {
		return fmt.Errorf("client: listen udp %s: %w", s.cfg.LocalUDPAddr, err)
	}
	defer udpConn.Close()

	reader := bufio.NewReader(conn)

	if err := conn.SetReadDeadline(time.Now().Add(tcpReadTimeout)); err != nil {
		return fmt.Errorf("client: set control read deadline: %w", err)
	}
	if _, err := reader.ReadString('\n'); err != nil {
		return fmt.Errorf("client: read greeting: %w", err)
	}

	cmd := fmt.Sprintf("STREAM udp://%s %s\n", udpConn.LocalAddr().String(), strings.Join(s.cfg.Tickers, ","))
	if _, err := conn.Write([]byte(cmd)); err != nil {
		return fmt.Errorf("client: send STREAM: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(tcpReadTimeout)); err != nil {
		return fmt.Errorf("client: set control read deadline: %w", err)
	}
	reply, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("client: read STREAM reply: %w", err)
	}
	if !strings.HasPrefix(reply, "OK") {
		return fmt.Errorf("client: server rejected STREAM: %s", strings.TrimSpace(reply))
	}

	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return fmt.Errorf("client: clear control read deadline: %w", err)
	}
	s.setPhase(Streaming)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	recv := newReceiver(udpConn, s.cfg.PingPeriod, s.onQuote)
	errCh := make(chan error, 1)
	go func() { errCh <- recv.run(streamCtx) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
