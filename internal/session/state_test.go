package session

import (
	"testing"
	"time"
)

func TestStateTransitions(t *testing.T) {
	s := NewState()
	if s.Phase() != Stopped {
		t.Fatalf("new State should start Stopped, got %s", s.Phase())
	}

	s.Start()
	if !s.Running() {
		t.Fatalf("expected Running after Start")
	}

	s.Cancel()
	if !s.Cancelled() {
		t.Fatalf("expected Cancelled after Cancel")
	}

	s.Stop()
	if s.Phase() != Stopped {
		t.Fatalf("expected Stopped after Stop, got %s", s.Phase())
	}
}

func TestStateCancelIdempotent(t *testing.T) {
	s := NewState()
	s.Start()
	s.Cancel()
	s.Cancel()
	if !s.Cancelled() {
		t.Fatalf("expected Cancelled after repeated Cancel")
	}
}

func TestLivenessExpired(t *testing.T) {
	l := NewLiveness()
	if !l.Expired(-time.Second) {
		t.Fatalf("expected a negative threshold to always be expired")
	}
	l.Touch()
	if l.Expired(time.Hour) {
		t.Fatalf("freshly touched liveness should not be expired for an hour-long threshold")
	}
}
