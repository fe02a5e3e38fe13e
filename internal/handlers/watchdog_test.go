package handlers

import (
	"sync"
	"testing"
	"time"

	"github.com/mossy-p/call-signaling/pkg/models"
)

type captureDeliver struct {
	mu   sync.Mutex
	msgs []models.SignalMessage
}

func (c *captureDeliver) deliver(msg models.SignalMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *captureDeliver) delivered() []models.SignalMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.SignalMessage, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func TestWatchdogTimesOutUnansweredCall(t *testing.T) {
	sink := &captureDeliver{}
	wd := NewWatchdog(20*time.Millisecond, sink.deliver)
	defer wd.Stop()

	wd.Observe(models.NewCallRequest("call-1", "alice", "bob", "room-1", ""))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sink.delivered()) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	msgs := sink.delivered()
	if len(msgs) != 2 {
		t.Fatalf("delivered %d signals, want 2 (one per party)", len(msgs))
	}
	recipients := map[string]bool{}
	for _, msg := range msgs {
		if msg.Type != models.SignalTypeCallTimeout {
			t.Errorf("type = %s, want CALL_TIMEOUT", msg.Type)
		}
		if msg.CallID != "call-1" {
			t.Errorf("callId = %q, want call-1", msg.CallID)
		}
		recipients[msg.ToUserID] = true
	}
	if !recipients["alice"] || !recipients["bob"] {
		t.Errorf("timeout recipients = %v, want both alice and bob", recipients)
	}
}

func TestWatchdogDisarmedByAnswer(t *testing.T) {
	sink := &captureDeliver{}
	wd := NewWatchdog(20*time.Millisecond, sink.deliver)
	defer wd.Stop()

	wd.Observe(models.NewCallRequest("call-1", "alice", "bob", "room-1", ""))
	wd.Observe(models.NewCallAccept("call-1", "bob", "alice", "room-1"))

	time.Sleep(60 * time.Millisecond)
	if n := len(sink.delivered()); n != 0 {
		t.Fatalf("answered call produced %d timeout signals, want 0", n)
	}
}

func TestWatchdogDisarmedByTerminalSignals(t *testing.T) {
	terminal := []models.SignalMessage{
		models.NewCallReject("call-1", "bob", "alice", ""),
		models.NewCallCancel("call-1", "alice", "bob"),
		models.NewCallBusy("call-1", "bob", "alice"),
	}

	for _, stop := range terminal {
		sink := &captureDeliver{}
		wd := NewWatchdog(20*time.Millisecond, sink.deliver)

		wd.Observe(models.NewCallRequest("call-1", "alice", "bob", "room-1", ""))
		wd.Observe(stop)

		time.Sleep(60 * time.Millisecond)
		if n := len(sink.delivered()); n != 0 {
			t.Errorf("%s: %d timeout signals after terminal, want 0", stop.Type, n)
		}
		wd.Stop()
	}
}

func TestWatchdogDuplicateRequestKeepsOriginalTimer(t *testing.T) {
	sink := &captureDeliver{}
	wd := NewWatchdog(30*time.Millisecond, sink.deliver)
	defer wd.Stop()

	wd.Observe(models.NewCallRequest("call-1", "alice", "bob", "room-1", ""))
	time.Sleep(15 * time.Millisecond)
	// Redelivered request must not restart the clock
	wd.Observe(models.NewCallRequest("call-1", "alice", "bob", "room-1", ""))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sink.delivered()) == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("duplicate request suppressed the original timer")
}

func TestWatchdogStopCancelsAll(t *testing.T) {
	sink := &captureDeliver{}
	wd := NewWatchdog(20*time.Millisecond, sink.deliver)

	wd.Observe(models.NewCallRequest("call-1", "alice", "bob", "room-1", ""))
	wd.Observe(models.NewCallRequest("call-2", "carol", "dave", "room-2", ""))
	wd.Stop()

	time.Sleep(60 * time.Millisecond)
	if n := len(sink.delivered()); n != 0 {
		t.Fatalf("stopped watchdog delivered %d signals, want 0", n)
	}
}
