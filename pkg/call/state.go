package call

import "fmt"

// State represents the local party's phase in the call lifecycle
type State int

const (
	// StateIdle means no call is in flight
	StateIdle State = iota
	// StateCalling means the local party initiated a call and is awaiting a response
	StateCalling
	// StateIncoming means a call request arrived and is awaiting a local decision
	StateIncoming
	// StateConnected means the call was accepted by either side
	StateConnected
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCalling:
		return "Calling"
	case StateIncoming:
		return "Incoming"
	case StateConnected:
		return "Connected"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// validTransitions defines which state transitions are allowed
var validTransitions = map[State][]State{
	StateIdle:      {StateCalling, StateIncoming},
	StateCalling:   {StateConnected, StateIdle},
	StateIncoming:  {StateConnected, StateIdle},
	StateConnected: {StateIdle},
}

// CanTransitionTo checks if a transition from current state to next state is valid
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
