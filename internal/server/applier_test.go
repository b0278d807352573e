package server

import (
	"context"
	"testing"
	"time"

	"quotestream/internal/bus"
	"quotestream/internal/quote"
	"quotestream/internal/session"
)

func TestApplierUpdatesOnlySubscribedTickers(t *testing.T) {
	b := bus.New(8)
	defer b.Close()

	snap := session.NewSnapshot()
	snap.Reset([]string{"AAPL"})
	state := session.NewState()
	state.Start()

	a := NewApplier(b, snap, state)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	if err := b.Publish(quote.Quote{Ticker: "AAPL", Price: 1, Volume: 1, Timestamp: 1}); err != nil {
		t.Fatalf("Publish AAPL: %v", err)
	}
	if err := b.Publish(quote.Quote{Ticker: "MSFT", Price: 2, Volume: 2, Timestamp: 2}); err != nil {
		t.Fatalf("Publish MSFT: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if !snap.Has("AAPL") {
		t.Fatalf("snapshot missing AAPL")
	}
	if snap.Has("MSFT") {
		t.Fatalf("snapshot should not have gained MSFT")
	}
	var got quote.Quote
	snap.Each(func(q quote.Quote) {
		if q.Ticker == "AAPL" {
			got = q
		}
	})
	if got.Price != 1 {
		t.Fatalf("AAPL price = %v, want 1", got.Price)
	}

	state.Cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("applier did not exit after Cancel")
	}
}
