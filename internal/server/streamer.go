package server

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"quotestream/internal/flog"
	"quotestream/internal/pkg/buffer"
	"quotestream/internal/session"
)

// Timing constants for the UDP streamer, per spec.md §4.4/§5.
const (
	EmissionPeriod    = 2 * time.Second
	UDPReadTimeout    = 6 * time.Second
	LivenessThreshold = 5 * time.Second
)

// ErrCanceled is returned by Run when the streamer's own state ends the
// loop. When the parent context ends it instead, Run returns ctx.Err().
var ErrCanceled = errors.New("streamer: canceled")

// Streamer broadcasts the Subscription Snapshot to one client's UDP
// endpoint on a fixed period, and independently watches a shared UDP
// socket for that client's keep-alive PINGs. It mirrors the teacher's
// split between a write loop and a perpetual reader goroutine
// (internal/server/udp.go's handleUDPDirect).
type Streamer struct {
	conn      *net.UDPConn
	target    *net.UDPAddr
	targetStr string

	snapshot *session.Snapshot
	state    *session.State

	// applierState is cancelled when the streamer exits, per spec.md
	// §4.4's "signals the paired Update Applier to cancel".
	applierState *session.State
	liveness     *session.Liveness
}

// NewStreamer resolves addr and returns a Streamer writing to it over conn.
func NewStreamer(conn *net.UDPConn, addr string, snap *session.Snapshot, state, applierState *session.State, liveness *session.Liveness) (*Streamer, error) {
	target, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Streamer{
		conn:         conn,
		target:       target,
		targetStr:    target.String(),
		snapshot:     snap,
		state:        state,
		applierState: applierState,
		liveness:     liveness,
	}, nil
}

// Run drives the emission loop until Cancelled or ctx ends, and signals
// the paired applier to cancel on the way out.
func (s *Streamer) Run(ctx context.Context) error {
	defer s.state.Stop()
	defer s.applierState.Cancel()

	recvCtx, cancelRecv := context.WithCancel(ctx)
	defer cancelRecv()
	go s.keepAliveLoop(recvCtx)

	ticker := time.NewTicker(EmissionPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.state.Done():
			return ErrCanceled
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.emit()

		select {
		case <-s.state.Done():
			return ErrCanceled
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// emit sends one datagram per snapshot entry, in stored order, without
// holding the snapshot's lock during I/O.
func (s *Streamer) emit() {
	for _, q := range s.snapshot.Copy() {
		if _, err := s.conn.WriteToUDP(q.Encode(), s.target); err != nil {
			flog.Debugf("streamer: udp send to %s failed: %v", s.targetStr, err)
		}
	}
}

// keepAliveLoop performs blocking receive attempts on the shared UDP
// socket, each bounded by UDPReadTimeout, touching liveness on a PING
// from this streamer's own client and self-cancelling once the
// liveness deadline has passed.
func (s *Streamer) keepAliveLoop(ctx context.Context) {
	bufp := buffer.UPool.Get().(*[]byte)
	defer buffer.UPool.Put(bufp)
	buf := *bufp

	for {
		if ctx.Err() != nil || s.state.Cancelled() {
			return
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(UDPReadTimeout)); err != nil {
			flog.Debugf("streamer: set read deadline: %v", err)
			return
		}
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// read timeout or transient error: fall through to the
			// liveness check below.
		} else if addr.String() == s.targetStr && strings.Contains(string(buf[:n]), "PING") {
			s.liveness.Touch()
		}

		if s.liveness.Expired(LivenessThreshold) {
			s.state.Cancel()
			return
		}
	}
}
