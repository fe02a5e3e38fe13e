package call

import "testing"

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:      "Idle",
		StateCalling:   "Calling",
		StateIncoming:  "Incoming",
		StateConnected: "Connected",
		State(99):      "Unknown(99)",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestValidTransitions(t *testing.T) {
	allowed := []struct{ from, to State }{
		{StateIdle, StateCalling},
		{StateIdle, StateIncoming},
		{StateCalling, StateConnected},
		{StateCalling, StateIdle},
		{StateIncoming, StateConnected},
		{StateIncoming, StateIdle},
		{StateConnected, StateIdle},
	}
	for _, tr := range allowed {
		if !tr.from.CanTransitionTo(tr.to) {
			t.Errorf("CanTransitionTo(%s -> %s) = false, want true", tr.from, tr.to)
		}
	}

	forbidden := []struct{ from, to State }{
		{StateIdle, StateConnected},
		{StateCalling, StateIncoming},
		{StateIncoming, StateCalling},
		{StateConnected, StateCalling},
		{StateConnected, StateIncoming},
	}
	for _, tr := range forbidden {
		if tr.from.CanTransitionTo(tr.to) {
			t.Errorf("CanTransitionTo(%s -> %s) = true, want false", tr.from, tr.to)
		}
	}
}

func TestSessionInvariant(t *testing.T) {
	var s session

	if s.state != StateIdle || s.callID != "" || s.roomID != "" || s.remoteUserID != "" {
		t.Fatalf("zero session not idle: %+v", s)
	}
	if s.matches("") {
		t.Error("idle session must not match any call id, even empty")
	}

	s.begin(StateCalling, "call-1", "room-1", "bob")
	if s.state != StateCalling || s.callID == "" || s.roomID == "" || s.remoteUserID == "" {
		t.Fatalf("begin left partial session: %+v", s)
	}
	if !s.matches("call-1") {
		t.Error("session should match its own call id")
	}
	if s.matches("call-2") {
		t.Error("session must not match a foreign call id")
	}

	s.reset()
	if s.state != StateIdle || s.callID != "" || s.roomID != "" || s.remoteUserID != "" {
		t.Fatalf("reset left residue: %+v", s)
	}
}
