package server

import (
	"context"
	"net"
	"testing"
	"time"

	"quotestream/internal/quote"
	"quotestream/internal/session"
)

func TestStreamerEmitSendsSnapshotEntries(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP server: %v", err)
	}
	defer serverConn.Close()

	clientConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP client: %v", err)
	}
	defer clientConn.Close()

	snap := session.NewSnapshot()
	snap.Reset([]string{"AAPL", "IBM"})
	snap.Update(quote.Quote{Ticker: "AAPL", Price: 150.23, Volume: 1200, Timestamp: 1})
	snap.Update(quote.Quote{Ticker: "IBM", Price: 99.5, Volume: 300, Timestamp: 2})

	state := session.NewState()
	applierState := session.NewState()
	liveness := session.NewLiveness()

	s, err := NewStreamer(serverConn, clientConn.LocalAddr().String(), snap, state, applierState, liveness)
	if err != nil {
		t.Fatalf("NewStreamer: %v", err)
	}
	s.emit()

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1024)
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		n, _, err := clientConn.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("ReadFromUDP: %v", err)
		}
		q, err := quote.Decode(buf[:n])
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		seen[q.Ticker] = true
	}
	if !seen["AAPL"] || !seen["IBM"] {
		t.Fatalf("seen = %v, want AAPL and IBM", seen)
	}
}

func TestKeepAliveLoopTouchesLivenessOnMatchingPing(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP server: %v", err)
	}
	defer serverConn.Close()

	clientConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP client: %v", err)
	}
	defer clientConn.Close()

	snap := session.NewSnapshot()
	state := session.NewState()
	applierState := session.NewState()
	liveness := session.NewLiveness()
	// Force an already-stale deadline so a single successful touch is
	// the only thing keeping Expired false afterwards.
	time.Sleep(500 * time.Millisecond)

	s, err := NewStreamer(serverConn, clientConn.LocalAddr().String(), snap, state, applierState, liveness)
	if err != nil {
		t.Fatalf("NewStreamer: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go s.keepAliveLoop(ctx)

	if _, err := clientConn.WriteToUDP([]byte("PING\n"), serverConn.LocalAddr().(*net.UDPAddr)); err != nil {
		t.Fatalf("WriteToUDP: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if liveness.Expired(400 * time.Millisecond) {
		t.Fatalf("liveness expired after matching PING")
	}
}
