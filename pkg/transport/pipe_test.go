package transport_test

import (
	"testing"
	"time"

	"github.com/mossy-p/call-signaling/pkg/call"
	"github.com/mossy-p/call-signaling/pkg/models"
	"github.com/mossy-p/call-signaling/pkg/transport"
)

// waitFor polls cond until it holds or the deadline passes. Pipe delivery is
// asynchronous, so assertions about the receiving side need a grace period.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPipeDelivers(t *testing.T) {
	a, b := transport.Pipe()
	defer a.Close()
	defer b.Close()

	received := make(chan models.SignalMessage, 1)
	b.SetOnSignal(func(msg models.SignalMessage) { received <- msg })

	want := models.NewCallCancel("call-1", "alice", "bob")
	if err := a.Send(want); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-received:
		if got.Type != want.Type || got.CallID != want.CallID {
			t.Errorf("received %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("signal never delivered")
	}
}

func TestPipeClosedSendFails(t *testing.T) {
	a, b := transport.Pipe()
	b.Close()

	if err := a.Send(models.NewHeartbeat("alice")); err != transport.ErrClosed {
		t.Errorf("Send after peer close = %v, want ErrClosed", err)
	}
	a.Close()
	if err := a.Send(models.NewHeartbeat("alice")); err != transport.ErrClosed {
		t.Errorf("Send after own close = %v, want ErrClosed", err)
	}
}

func TestPipeDropsWithoutHandler(t *testing.T) {
	a, b := transport.Pipe()
	defer a.Close()
	defer b.Close()

	// No handler on b: the signal is consumed and dropped, later signals
	// still reach a late-registered handler
	a.Send(models.NewHeartbeat("alice"))

	received := make(chan models.SignalMessage, 1)
	b.SetOnSignal(func(msg models.SignalMessage) { received <- msg })
	a.Send(models.NewUserOnline("alice"))

	select {
	case got := <-received:
		if got.Type != models.SignalTypeUserOnline {
			t.Errorf("received %s, want USER_ONLINE", got.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("signal never delivered")
	}
}

func TestManagersOverPipe(t *testing.T) {
	// Full call setup and teardown across the in-memory channel
	ta, tb := transport.Pipe()
	defer ta.Close()
	defer tb.Close()

	a := call.NewManager("alice", ta)
	b := call.NewManager("bob", tb)

	var incomingID string
	b.Subscribe(&call.EventFuncs{
		IncomingCall: func(callID, fromUserID, fromUserName string) { incomingID = callID },
	})

	callID, err := a.MakeCall("bob", "Alice")
	if err != nil {
		t.Fatalf("MakeCall: %v", err)
	}

	waitFor(t, func() bool { return b.CallState() == call.StateIncoming })
	if incomingID != callID {
		t.Fatalf("B saw call %q, want %q", incomingID, callID)
	}

	if err := b.AcceptCall(callID); err != nil {
		t.Fatalf("AcceptCall: %v", err)
	}
	waitFor(t, func() bool { return a.CallState() == call.StateConnected })

	if err := a.EndCall(); err != nil {
		t.Fatalf("EndCall: %v", err)
	}
	waitFor(t, func() bool { return b.CallState() == call.StateIdle })
	if a.CallState() != call.StateIdle {
		t.Errorf("A state = %s, want Idle", a.CallState())
	}
}
