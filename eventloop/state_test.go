package eventloop

import (
	"testing"
)

func TestFastState_Transitions(t *testing.T) {
	s := NewFastState()
	if s.Load() != StateAwake {
		t.Fatalf("expected StateAwake, got %s", s.Load())
	}
	if s.TryTransition(StateRunning, StateSleeping) {
		t.Fatal("transition from the wrong state must fail")
	}
	if !s.TryTransition(StateAwake, StateRunning) || !s.IsRunning() {
		t.Fatal("expected running")
	}
	if !s.TryTransition(StateRunning, StateSleeping) || !s.IsRunning() {
		t.Fatal("sleeping counts as running")
	}
	s.Store(StateTerminating)
	if !s.IsClosing() || s.IsRunning() {
		t.Fatal("expected closing")
	}
}

func TestLoopState_String(t *testing.T) {
	for state, want := range map[LoopState]string{
		StateAwake:       "Awake",
		StateRunning:     "Running",
		StateSleeping:    "Sleeping",
		StateTerminating: "Terminating",
		StateTerminated:  "Terminated",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d: expected %q, got %q", state, want, got)
		}
	}
}
