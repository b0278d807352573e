// Package server implements the TCP control-session acceptor and its
// per-connection workers (Control, Update Applier, UDP Streamer), per
// spec.md §4.4-§4.6. It is grounded on the teacher's internal/server/udp.go
// accept-and-dispatch shape, generalized from VPN tunnel handling to
// quote streaming.
package server

import (
	"context"
	"fmt"
	"net"

	"quotestream/internal/bus"
	"quotestream/internal/flog"
)

// Acceptor binds the TCP control listener and the shared UDP socket,
// and spawns one Control session per accepted connection. Each session
// gets its own OS-level duplicate of the UDP socket descriptor, per
// spec.md §4.6.
type Acceptor struct {
	tcpAddr string
	udpAddr string
	bus     *bus.Bus
}

// NewAcceptor returns an Acceptor bound to (but not yet listening on)
// tcpAddr/udpAddr.
func NewAcceptor(tcpAddr, udpAddr string, b *bus.Bus) *Acceptor {
	return &Acceptor{tcpAddr: tcpAddr, udpAddr: udpAddr, bus: b}
}

// Run binds both sockets and serves accepted connections until ctx ends
// or the listener fails.
func (a *Acceptor) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.tcpAddr)
	if err != nil {
		return fmt.Errorf("server: listen tcp %s: %w", a.tcpAddr, err)
	}
	defer ln.Close()

	udpLocal, err := net.ResolveUDPAddr("udp", a.udpAddr)
	if err != nil {
		return fmt.Errorf("server: resolve udp %s: %w", a.udpAddr, err)
	}
	udpConn, err := net.ListenUDP("udp", udpLocal)
	if err != nil {
		return fmt.Errorf("server: listen udp %s: %w", a.udpAddr, err)
	}
	defer udpConn.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
		udpConn.Close()
	}()

	flog.Infof("server: accepting tcp=%s udp=%s", a.tcpAddr, a.udpAddr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("server: accept: %w", err)
		}

		cloned, err := cloneUDPConn(udpConn)
		if err != nil {
			flog.Errorf("server: clone udp socket for %s: %v", conn.RemoteAddr(), err)
			conn.Close()
			continue
		}

		c := NewControl(conn, cloned, a.bus)
		go c.Run(ctx)
	}
}

// cloneUDPConn duplicates the OS descriptor behind conn via File()
// and FileConn(), so the returned *net.UDPConn shares the same
// underlying socket (and local address) as conn.
func cloneUDPConn(conn *net.UDPConn) (*net.UDPConn, error) {
	f, err := conn.File()
	if err != nil {
		return nil, fmt.Errorf("server: dup udp socket: %w", err)
	}
	defer f.Close()

	nc, err := net.FileConn(f)
	if err != nil {
		return nil, fmt.Errorf("server: fileconn udp socket: %w", err)
	}
	udp, ok := nc.(*net.UDPConn)
	if !ok {
		nc.Close()
		return nil, fmt.Errorf("server: cloned connection is not a UDP conn")
	}
	return udp, nil
}
