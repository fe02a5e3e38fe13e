package call

// session holds the identifiers of the in-flight call.
//
// The three id fields are empty when and only when state is Idle. The fields
// are written only through begin and reset, never assigned directly, so the
// invariant cannot be broken by a partial update.
type session struct {
	state        State
	callID       string
	roomID       string
	remoteUserID string
}

// begin enters a non-idle state with a full set of call identifiers
func (s *session) begin(state State, callID, roomID, remoteUserID string) {
	s.state = state
	s.callID = callID
	s.roomID = roomID
	s.remoteUserID = remoteUserID
}

// reset returns the session to Idle and clears all identifiers
func (s *session) reset() {
	s.state = StateIdle
	s.callID = ""
	s.roomID = ""
	s.remoteUserID = ""
}

// matches reports whether callID identifies the in-flight call.
// Always false while idle: there is no call to match.
func (s *session) matches(callID string) bool {
	return s.callID != "" && s.callID == callID
}
