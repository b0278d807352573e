package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"quotestream/internal/bus"
	"quotestream/internal/generator"
)

// Config holds everything Serve needs to bring the server up.
type Config struct {
	TCPAddr     string
	UDPAddr     string
	Tickers     []string
	BusCapacity int
}

// Serve wires the Quote Bus, the singleton Generator, and the Acceptor
// together and runs them under an errgroup.Group: either one exiting
// with an error tears down the other via ctx cancellation, matching the
// teacher's lifecycle-supervision idiom (nabbar-golib wires the same
// golang.org/x/sync/errgroup for supervising sibling goroutines).
func Serve(ctx context.Context, cfg Config) error {
	b := bus.New(cfg.BusCapacity)
	defer b.Close()

	gen := generator.New(cfg.Tickers, b)
	acc := NewAcceptor(cfg.TCPAddr, cfg.UDPAddr, b)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gen.Run(gctx) })
	g.Go(func() error { return acc.Run(gctx) })

	return g.Wait()
}
