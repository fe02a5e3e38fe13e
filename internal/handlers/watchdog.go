package handlers

import (
	"sync"
	"time"

	"github.com/mossy-p/call-signaling/pkg/models"
	"github.com/rs/zerolog/log"
)

// Watchdog enforces the ring timeout for calls passing through the relay.
//
// Relaying a CALL_REQUEST arms a timer for that call; relaying an accept or
// any terminal signal disarms it. When the timer fires, both parties receive
// CALL_TIMEOUT so the caller stops ringing and the callee dismisses the
// incoming-call prompt. Clients do not run their own timers.
type Watchdog struct {
	timeout time.Duration
	deliver func(models.SignalMessage)

	mu      sync.Mutex
	pending map[string]*pendingRing
}

type pendingRing struct {
	timer    *time.Timer
	callerID string
	calleeID string
}

// NewWatchdog creates a watchdog that emits timeout signals through deliver
func NewWatchdog(timeout time.Duration, deliver func(models.SignalMessage)) *Watchdog {
	return &Watchdog{
		timeout: timeout,
		deliver: deliver,
		pending: make(map[string]*pendingRing),
	}
}

// Observe inspects one relayed signal, arming or disarming the ring timer
// for its call
func (w *Watchdog) Observe(msg models.SignalMessage) {
	switch {
	case msg.Type == models.SignalTypeCallRequest:
		w.arm(msg.CallID, msg.FromUserID, msg.ToUserID)
	case msg.Type == models.SignalTypeCallAccept || msg.IsTerminal():
		w.disarm(msg.CallID)
	}
}

// Stop cancels all pending ring timers
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for callID, ring := range w.pending {
		ring.timer.Stop()
		delete(w.pending, callID)
	}
}

func (w *Watchdog) arm(callID, callerID, calleeID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.pending[callID]; exists {
		// Duplicate request for a call already ringing
		return
	}

	ring := &pendingRing{callerID: callerID, calleeID: calleeID}
	ring.timer = time.AfterFunc(w.timeout, func() { w.expire(callID) })
	w.pending[callID] = ring
}

func (w *Watchdog) disarm(callID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ring, ok := w.pending[callID]; ok {
		ring.timer.Stop()
		delete(w.pending, callID)
	}
}

func (w *Watchdog) expire(callID string) {
	w.mu.Lock()
	ring, ok := w.pending[callID]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.pending, callID)
	w.mu.Unlock()

	log.Info().Str("call_id", callID).Str("caller", ring.callerID).Msg("Call unanswered, timing out")

	w.deliver(models.NewCallTimeout(callID, ring.calleeID, ring.callerID))
	w.deliver(models.NewCallTimeout(callID, ring.callerID, ring.calleeID))
}
