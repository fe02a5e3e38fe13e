package call

// Events receives call lifecycle notifications from a Manager.
//
// Every method is invoked synchronously on the goroutine that processed the
// triggering signal or command, after the state transition has committed:
// when a terminal notification runs, the manager is already back to Idle.
// Handlers that touch a UI must re-dispatch themselves.
type Events interface {
	// OnIncomingCall fires when a call request arrives while idle.
	// fromUserName is "" when the caller sent no display name.
	OnIncomingCall(callID, fromUserID, fromUserName string)
	// OnCallAccepted fires when the call reaches Connected on this side,
	// whether the local party accepted or the remote party did.
	OnCallAccepted(callID, roomID string)
	// OnCallRejected fires when the callee declined. reason may be "".
	OnCallRejected(callID, reason string)
	// OnCallCancelled fires when the caller withdrew a ringing call.
	OnCallCancelled(callID string)
	// OnCallEnded fires when the remote party hung up a connected call.
	OnCallEnded(callID string)
	// OnCallTimeout fires when the call went unanswered past the deadline.
	OnCallTimeout(callID string)
	// OnUserBusy fires when the callee was already in another call.
	OnUserBusy(callID string)
}

// EventFuncs adapts plain closures to the Events interface.
// Nil fields are skipped, so callers only wire the events they care about.
type EventFuncs struct {
	IncomingCall  func(callID, fromUserID, fromUserName string)
	CallAccepted  func(callID, roomID string)
	CallRejected  func(callID, reason string)
	CallCancelled func(callID string)
	CallEnded     func(callID string)
	CallTimeout   func(callID string)
	UserBusy      func(callID string)
}

func (f *EventFuncs) OnIncomingCall(callID, fromUserID, fromUserName string) {
	if f.IncomingCall != nil {
		f.IncomingCall(callID, fromUserID, fromUserName)
	}
}

func (f *EventFuncs) OnCallAccepted(callID, roomID string) {
	if f.CallAccepted != nil {
		f.CallAccepted(callID, roomID)
	}
}

func (f *EventFuncs) OnCallRejected(callID, reason string) {
	if f.CallRejected != nil {
		f.CallRejected(callID, reason)
	}
}

func (f *EventFuncs) OnCallCancelled(callID string) {
	if f.CallCancelled != nil {
		f.CallCancelled(callID)
	}
}

func (f *EventFuncs) OnCallEnded(callID string) {
	if f.CallEnded != nil {
		f.CallEnded(callID)
	}
}

func (f *EventFuncs) OnCallTimeout(callID string) {
	if f.CallTimeout != nil {
		f.CallTimeout(callID)
	}
}

func (f *EventFuncs) OnUserBusy(callID string) {
	if f.UserBusy != nil {
		f.UserBusy(callID)
	}
}
