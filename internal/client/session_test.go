package client

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"quotestream/internal/quote"
)

// startFakeServer starts a minimal stand-in for the real control+streamer pair,
// just enough to drive a Session through Subscribing -> Streaming and
// push one quote datagram back.
func startFakeServer(t *testing.T) (tcpAddr string, udpConn *net.UDPConn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	udpConn, err = net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	t.Cleanup(func() { udpConn.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		conn.Write([]byte("Welcome to quotation stream!\n"))

		reader := bufio.NewReader(conn)
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		if !strings.HasPrefix(line, "STREAM udp://") {
			conn.Write([]byte("Error command stream\n"))
			return
		}
		fields := strings.Fields(line)
		clientUDPAddr := strings.TrimPrefix(fields[1], "udp://")
		conn.Write([]byte("OK Stream\n"))

		target, err := net.ResolveUDPAddr("udp", clientUDPAddr)
		if err != nil {
			return
		}
		udpConn.WriteToUDP(quote.Quote{Ticker: "AAPL", Price: 150.23, Volume: 1200, Timestamp: 1}.Encode(), target)

		// keep the connection open until the test ends.
		discard := make([]byte, 1)
		for {
			if _, err := conn.Read(discard); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String(), udpConn
}

func TestSessionReceivesQuoteAfterStream(t *testing.T) {
	tcpAddr, _ := startFakeServer(t)

	var mu sync.Mutex
	var got []quote.Quote

	cfg := Config{
		ServerAddr:      tcpAddr,
		LocalUDPAddr:    "127.0.0.1:0",
		Tickers:         []string{"AAPL"},
		ReconnectPeriod: time.Second,
		PingPeriod:      50 * time.Millisecond,
	}
	s := NewSession(cfg, func(q quote.Quote) {
		mu.Lock()
		got = append(got, q)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go s.Run(ctx)

	deadline := time.Now().Add(1500 * time.Millisecond)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) == 0 {
		t.Fatalf("session received no quotes")
	}
	if got[0].Ticker != "AAPL" {
		t.Fatalf("got[0].Ticker = %q, want AAPL", got[0].Ticker)
	}
}
