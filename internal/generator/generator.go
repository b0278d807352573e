// Package generator implements the single process-wide producer of
// synthetic per-ticker quotes, grounded on the cadence-loop shape of the
// teacher's client/ticker.go health-check loop (a time.Ticker driving a
// for-select over ctx.Done()).
package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"quotestream/internal/bus"
	"quotestream/internal/quote"
)

// Period is the fixed interval between generation rounds (spec.md §4.1).
const Period = 100 * time.Millisecond

var largeCapTickers = map[string]bool{"AAPL": true, "MSFT": true, "TSLA": true}

// RandSource supplies uniform samples on [0,1). The choice of RNG is an
// external collaborator per spec.md §1; New defaults to a math/rand/v2
// source when none is supplied.
type RandSource interface {
	Float64() float64
}

type defaultRand struct{}

func (defaultRand) Float64() float64 { return rand.Float64() }

// ErrGeneratorQuote is returned when a publish onto the bus fails because
// the bus has been closed downstream.
var ErrGeneratorQuote = errors.New("generator: quote publish failed")

// Generator produces one Quote per ticker per round and publishes each
// onto a bus.Bus.
type Generator struct {
	tickers []string
	bus     *bus.Bus
	rand    RandSource
	clock   func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithRandSource overrides the default math/rand/v2 source.
func WithRandSource(r RandSource) Option {
	return func(g *Generator) { g.rand = r }
}

// WithClock overrides time.Now, for deterministic timestamp tests.
func WithClock(clock func() time.Time) Option {
	return func(g *Generator) { g.clock = clock }
}

// New returns a Generator for the given TickerUniverse, publishing onto b.
func New(tickers []string, b *bus.Bus, opts ...Option) *Generator {
	g := &Generator{
		tickers: append([]string(nil), tickers...),
		bus:     b,
		rand:    defaultRand{},
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run produces rounds of quotes until ctx is cancelled or a publish fails.
// On a publish failure it returns a wrapped ErrGeneratorQuote (spec.md
// §4.1's GeneratorQuoteError); a clock fault is not distinguished in Go
// since time.Now cannot itself fail, so SystemTimeError has no analogue
// here beyond a custom clock func returning a zero time, which callers
// may treat as fatal if they choose.
func (g *Generator) Run(ctx context.Context) error {
	ticker := time.NewTicker(Period)
	defer ticker.Stop()

	for {
		if err := g.round(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (g *Generator) round() error {
	now := uint64(g.clock().UnixMilli())
	for _, t := range g.tickers {
		q := g.quoteFor(t, now)
		if err := g.bus.Publish(q); err != nil {
			return fmt.Errorf("%w: %v", ErrGeneratorQuote, err)
		}
	}
	return nil
}

func (g *Generator) quoteFor(ticker string, now uint64) quote.Quote {
	u := g.rand.Float64()
	uPrime := g.rand.Float64()

	var price float64
	var volume uint32
	if largeCapTickers[ticker] {
		price = 210.0 + u*(210.0*0.05)
		volume = 1000 + uint32(uPrime*5000)
	} else {
		price = 40.0 + u*(40.0*0.9)
		volume = 100 + uint32(uPrime*1000)
	}

	return quote.Quote{
		Ticker:    ticker,
		Price:     price,
		Volume:    volume,
		Timestamp: now,
	}
}
