package server

import (
	"context"
	"errors"

	"quotestream/internal/bus"
	"quotestream/internal/session"
)

// ErrReceiveQuote is returned when the bus handle's channel closes out
// from under the applier (sender dropped), per spec.md §4.3's failure
// case.
var ErrReceiveQuote = errors.New("applier: bus receive failed")

// Applier drains one bus handle and writes matching updates into a
// Snapshot. It never mutates the snapshot's key set.
type Applier struct {
	bus      *bus.Bus
	snapshot *session.Snapshot
	state    *session.State
}

// NewApplier returns an Applier for the given snapshot and state.
func NewApplier(b *bus.Bus, snap *session.Snapshot, state *session.State) *Applier {
	return &Applier{bus: b, snapshot: snap, state: state}
}

// Run drains the bus until the state is Cancelled/Stopped or ctx is done.
// It always leaves the state Stopped on return and always releases its
// bus subscription.
func (a *Applier) Run(ctx context.Context) error {
	handle := a.bus.Subscribe()
	defer handle.Close()
	defer a.state.Stop()

	for {
		select {
		case <-a.state.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case q, ok := <-handle.C():
			if !ok {
				return ErrReceiveQuote
			}
			a.snapshot.Update(q)
		}
	}
}
