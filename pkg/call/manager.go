package call

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mossy-p/call-signaling/pkg/models"
	"github.com/mossy-p/call-signaling/pkg/transport"
	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidState means a command was issued from a state that forbids it
	ErrInvalidState = errors.New("invalid call state")
	// ErrIdentityMissing means no local user identity is available
	ErrIdentityMissing = errors.New("local identity missing")
	// ErrCallMismatch means the given call id is not the tracked one
	ErrCallMismatch = errors.New("call id mismatch")
)

// Manager is the single source of truth for the local party's call lifecycle.
//
// It validates every inbound signal and local command against the current
// state, performs the transition, hands outbound signals to the transport and
// notifies subscribers. All session access is serialized by one mutex; local
// commands and inbound signals may race on the wall clock but never observe a
// torn transition. Construct one per signaling connection and share it.
type Manager struct {
	localUserID string
	tp          transport.Transport

	mu   sync.Mutex
	sess session
	subs []Events
}

// NewManager creates a call manager bound to localUserID and registers it as
// the transport's signal handler.
func NewManager(localUserID string, tp transport.Transport) *Manager {
	m := &Manager{
		localUserID: localUserID,
		tp:          tp,
	}
	tp.SetOnSignal(m.HandleSignal)
	return m
}

// Subscribe adds a lifecycle event subscriber. Subscribers are invoked in
// registration order and are never replaced.
func (m *Manager) Subscribe(ev Events) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, ev)
}

// MakeCall initiates a call to targetUserID and returns the generated call id.
// targetUserName is optional and shown to the callee as the caller name.
// The request is sent before MakeCall returns; the answer arrives later as an
// inbound signal.
func (m *Manager) MakeCall(targetUserID, targetUserName string) (string, error) {
	if targetUserID == "" {
		return "", fmt.Errorf("target user id is required")
	}

	m.mu.Lock()
	if m.localUserID == "" {
		m.mu.Unlock()
		return "", ErrIdentityMissing
	}
	if m.sess.state != StateIdle {
		state := m.sess.state
		m.mu.Unlock()
		return "", fmt.Errorf("%w: cannot make call while %s", ErrInvalidState, state)
	}

	callID := newCallID(m.localUserID)
	roomID := uuid.NewString()
	m.transition(StateCalling, callID, roomID, targetUserID)
	m.send(models.NewCallRequest(callID, m.localUserID, targetUserID, roomID, targetUserName))
	m.mu.Unlock()

	log.Debug().Str("call_id", callID).Str("to", targetUserID).Msg("Making call")
	return callID, nil
}

// AcceptCall answers the incoming call identified by callID
func (m *Manager) AcceptCall(callID string) error {
	m.mu.Lock()
	if m.sess.state != StateIncoming {
		state := m.sess.state
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot accept while %s", ErrInvalidState, state)
	}
	if !m.sess.matches(callID) {
		m.mu.Unlock()
		return ErrCallMismatch
	}

	roomID := m.sess.roomID
	remote := m.sess.remoteUserID
	m.transition(StateConnected, callID, roomID, remote)
	m.send(models.NewCallAccept(callID, m.localUserID, remote, roomID))
	subs := m.subs
	m.mu.Unlock()

	log.Debug().Str("call_id", callID).Msg("Accepted call")
	for _, s := range subs {
		s.OnCallAccepted(callID, roomID)
	}
	return nil
}

// RejectCall declines the incoming call identified by callID. reason is
// optional and forwarded to the caller.
func (m *Manager) RejectCall(callID, reason string) error {
	m.mu.Lock()
	if m.sess.state != StateIncoming {
		state := m.sess.state
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot reject while %s", ErrInvalidState, state)
	}
	if !m.sess.matches(callID) {
		m.mu.Unlock()
		return ErrCallMismatch
	}

	m.send(models.NewCallReject(callID, m.localUserID, m.sess.remoteUserID, reason))
	m.resetLocked()
	m.mu.Unlock()

	log.Debug().Str("call_id", callID).Msg("Rejected call")
	return nil
}

// CancelCall withdraws the outgoing call while it is still ringing.
// Calling it again after the first success is a no-op error.
func (m *Manager) CancelCall() error {
	m.mu.Lock()
	if m.sess.state != StateCalling {
		state := m.sess.state
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot cancel while %s", ErrInvalidState, state)
	}

	callID := m.sess.callID
	m.send(models.NewCallCancel(callID, m.localUserID, m.sess.remoteUserID))
	m.resetLocked()
	m.mu.Unlock()

	log.Debug().Str("call_id", callID).Msg("Cancelled call")
	return nil
}

// EndCall hangs up the connected call
func (m *Manager) EndCall() error {
	m.mu.Lock()
	if m.sess.state != StateConnected {
		state := m.sess.state
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot end call while %s", ErrInvalidState, state)
	}

	callID := m.sess.callID
	m.send(models.NewCallEnd(callID, m.localUserID, m.sess.remoteUserID))
	m.resetLocked()
	m.mu.Unlock()

	log.Debug().Str("call_id", callID).Msg("Ended call")
	return nil
}

// CallState returns the current lifecycle state
func (m *Manager) CallState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.state
}

// CurrentCallID returns the in-flight call id, or "" while idle
func (m *Manager) CurrentCallID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.callID
}

// CurrentRoomID returns the in-flight media room id, or "" while idle
func (m *Manager) CurrentRoomID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.roomID
}

// RemoteUserID returns the other party's id, or "" while idle
func (m *Manager) RemoteUserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.remoteUserID
}

// HandleSignal dispatches one inbound signal. It is registered as the
// transport handler by NewManager; tests may call it directly.
func (m *Manager) HandleSignal(msg models.SignalMessage) {
	switch msg.Type {
	case models.SignalTypeCallRequest:
		m.handleIncomingCall(msg)
	case models.SignalTypeCallAccept:
		m.handleCallAccepted(msg)
	case models.SignalTypeCallReject:
		m.handleCallRejected(msg)
	case models.SignalTypeCallCancel:
		m.handleCallCancelled(msg)
	case models.SignalTypeCallEnd:
		m.handleCallEnded(msg)
	case models.SignalTypeCallTimeout:
		m.handleCallTimeout(msg)
	case models.SignalTypeCallBusy:
		m.handleUserBusy(msg)
	default:
		log.Debug().Str("type", string(msg.Type)).Msg("Ignoring non-call signal")
	}
}

func (m *Manager) handleIncomingCall(msg models.SignalMessage) {
	m.mu.Lock()
	if m.sess.state != StateIdle {
		// Already in a call: reply busy. The request's call id cannot match
		// anything we track, so this is the one path that skips the id guard.
		m.send(models.NewCallBusy(msg.CallID, m.localUserID, msg.FromUserID))
		m.mu.Unlock()
		log.Debug().Str("call_id", msg.CallID).Str("from", msg.FromUserID).Msg("Busy, declining call request")
		return
	}

	m.transition(StateIncoming, msg.CallID, msg.RoomID, msg.FromUserID)
	subs := m.subs
	m.mu.Unlock()

	callerName := msg.ExtraValue(models.ExtraCallerName)
	log.Debug().Str("call_id", msg.CallID).Str("from", msg.FromUserID).Msg("Incoming call")
	for _, s := range subs {
		s.OnIncomingCall(msg.CallID, msg.FromUserID, callerName)
	}
}

func (m *Manager) handleCallAccepted(msg models.SignalMessage) {
	m.mu.Lock()
	if m.sess.state != StateCalling || !m.sess.matches(msg.CallID) {
		m.mu.Unlock()
		return
	}

	// Use the room we generated at initiation; the accept echoes it back
	roomID := m.sess.roomID
	m.transition(StateConnected, m.sess.callID, roomID, m.sess.remoteUserID)
	subs := m.subs
	m.mu.Unlock()

	log.Debug().Str("call_id", msg.CallID).Msg("Call accepted")
	for _, s := range subs {
		s.OnCallAccepted(msg.CallID, roomID)
	}
}

func (m *Manager) handleCallRejected(msg models.SignalMessage) {
	m.mu.Lock()
	if m.sess.state != StateCalling || !m.sess.matches(msg.CallID) {
		m.mu.Unlock()
		return
	}

	m.resetLocked()
	subs := m.subs
	m.mu.Unlock()

	reason := msg.ExtraValue(models.ExtraReason)
	log.Debug().Str("call_id", msg.CallID).Str("reason", reason).Msg("Call rejected")
	for _, s := range subs {
		s.OnCallRejected(msg.CallID, reason)
	}
}

func (m *Manager) handleCallCancelled(msg models.SignalMessage) {
	m.mu.Lock()
	if m.sess.state != StateIncoming || !m.sess.matches(msg.CallID) {
		m.mu.Unlock()
		return
	}

	m.resetLocked()
	subs := m.subs
	m.mu.Unlock()

	log.Debug().Str("call_id", msg.CallID).Msg("Call cancelled")
	for _, s := range subs {
		s.OnCallCancelled(msg.CallID)
	}
}

func (m *Manager) handleCallEnded(msg models.SignalMessage) {
	m.mu.Lock()
	if m.sess.state != StateConnected || !m.sess.matches(msg.CallID) {
		m.mu.Unlock()
		return
	}

	m.resetLocked()
	subs := m.subs
	m.mu.Unlock()

	log.Debug().Str("call_id", msg.CallID).Msg("Call ended by remote")
	for _, s := range subs {
		s.OnCallEnded(msg.CallID)
	}
}

func (m *Manager) handleCallTimeout(msg models.SignalMessage) {
	m.mu.Lock()
	// Timeout is honored from any non-idle state as long as the id matches
	if !m.sess.matches(msg.CallID) {
		m.mu.Unlock()
		return
	}

	m.resetLocked()
	subs := m.subs
	m.mu.Unlock()

	log.Debug().Str("call_id", msg.CallID).Msg("Call timed out")
	for _, s := range subs {
		s.OnCallTimeout(msg.CallID)
	}
}

func (m *Manager) handleUserBusy(msg models.SignalMessage) {
	m.mu.Lock()
	if m.sess.state != StateCalling || !m.sess.matches(msg.CallID) {
		m.mu.Unlock()
		return
	}

	m.resetLocked()
	subs := m.subs
	m.mu.Unlock()

	log.Debug().Str("call_id", msg.CallID).Msg("Remote user busy")
	for _, s := range subs {
		s.OnUserBusy(msg.CallID)
	}
}

// transition moves the session to a non-idle state. Callers hold m.mu.
func (m *Manager) transition(next State, callID, roomID, remoteUserID string) {
	if !m.sess.state.CanTransitionTo(next) {
		log.Warn().
			Str("from", m.sess.state.String()).
			Str("to", next.String()).
			Str("call_id", callID).
			Msg("Unexpected state transition")
	}
	m.sess.begin(next, callID, roomID, remoteUserID)
}

// resetLocked returns the session to Idle. Callers hold m.mu.
func (m *Manager) resetLocked() {
	m.sess.reset()
}

// send hands one signal to the transport. Delivery is best effort: a failed
// send is logged and does not roll back the transition that produced it.
func (m *Manager) send(msg models.SignalMessage) {
	if err := m.tp.Send(msg); err != nil {
		log.Warn().Err(err).Str("type", string(msg.Type)).Str("call_id", msg.CallID).Msg("Failed to send signal")
	}
}

// newCallID builds a call id that is unique per call: millisecond timestamp
// plus the initiating user's id.
func newCallID(userID string) string {
	return fmt.Sprintf("call_%d_%s", time.Now().UnixMilli(), userID)
}
