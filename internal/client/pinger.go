package client

import (
	"context"
	"net"
	"time"

	"quotestream/internal/flog"
)

// pingPayload is the literal datagram the server's keep-alive check
// looks for, per spec.md §4.4/§4.7.
const pingPayload = "PING\n"

// runPinger sends a PING datagram to addr on a fixed period until ctx
// ends, mirroring the teacher's ticker.go perpetual health-check loop.
func runPinger(ctx context.Context, conn *net.UDPConn, addr *net.UDPAddr, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := conn.WriteToUDP([]byte(pingPayload), addr); err != nil {
				flog.Debugf("client: ping to %s failed: %v", addr, err)
			}
		}
	}
}
