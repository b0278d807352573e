package client

import (
	"fmt"
	"net"
	"time"
)

// TCP keep-alive and read-timeout constants for the control connection,
// per spec.md §4.7/§5.
const (
	tcpKeepAliveIdle     = 10 * time.Second
	tcpKeepAliveInterval = 5 * time.Second
	tcpReadTimeout       = 5 * time.Second
)

// dial opens the TCP control connection with keep-alive enabled,
// grounded on the teacher's dial.go/timed_conn.go handling of the
// underlying net.Conn before wrapping it in a protocol-specific type.
func dial(addr string) (net.Conn, error) {
	d := net.Dialer{
		Timeout: tcpReadTimeout,
		KeepAliveConfig: net.KeepAliveConfig{
			Enable:   true,
			Idle:     tcpKeepAliveIdle,
			Interval: tcpKeepAliveInterval,
		},
	}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial tcp %s: %w", addr, err)
	}

	return conn, nil
}
