package models

import "time"

// SignalType represents the type of a call-control signal
type SignalType string

const (
	SignalTypeCallRequest SignalType = "CALL_REQUEST"
	SignalTypeCallAccept  SignalType = "CALL_ACCEPT"
	SignalTypeCallReject  SignalType = "CALL_REJECT"
	SignalTypeCallCancel  SignalType = "CALL_CANCEL"
	SignalTypeCallEnd     SignalType = "CALL_END"
	SignalTypeCallTimeout SignalType = "CALL_TIMEOUT"
	SignalTypeCallBusy    SignalType = "CALL_BUSY"

	// Presence signals share the channel but are not call control
	SignalTypeUserOnline  SignalType = "USER_ONLINE"
	SignalTypeUserOffline SignalType = "USER_OFFLINE"
	SignalTypeHeartbeat   SignalType = "HEARTBEAT"
)

// Well-known keys in SignalMessage.Extra
const (
	ExtraCallerName = "callerName"
	ExtraReason     = "reason"
)

// SignalMessage is a single call-control message exchanged between two parties
type SignalMessage struct {
	Type       SignalType        `json:"type"`
	CallID     string            `json:"callId"`
	FromUserID string            `json:"fromUserId"`
	ToUserID   string            `json:"toUserId"`
	RoomID     string            `json:"roomId,omitempty"`
	Timestamp  int64             `json:"timestamp"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// IsCallSignal reports whether the message is one of the seven call-control kinds
func (m SignalMessage) IsCallSignal() bool {
	switch m.Type {
	case SignalTypeCallRequest, SignalTypeCallAccept, SignalTypeCallReject,
		SignalTypeCallCancel, SignalTypeCallEnd, SignalTypeCallTimeout, SignalTypeCallBusy:
		return true
	}
	return false
}

// IsTerminal reports whether the signal ends the call it belongs to
func (m SignalMessage) IsTerminal() bool {
	switch m.Type {
	case SignalTypeCallReject, SignalTypeCallCancel, SignalTypeCallEnd,
		SignalTypeCallTimeout, SignalTypeCallBusy:
		return true
	}
	return false
}

// ExtraValue returns the value for key in Extra, or "" if absent
func (m SignalMessage) ExtraValue(key string) string {
	if m.Extra == nil {
		return ""
	}
	return m.Extra[key]
}

func newSignal(t SignalType, callID, fromUserID, toUserID string) SignalMessage {
	return SignalMessage{
		Type:       t,
		CallID:     callID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// NewCallRequest builds a call request. callerName is optional and rides in Extra
// so the callee can show who is calling before answering.
func NewCallRequest(callID, fromUserID, toUserID, roomID, callerName string) SignalMessage {
	msg := newSignal(SignalTypeCallRequest, callID, fromUserID, toUserID)
	msg.RoomID = roomID
	if callerName != "" {
		msg.Extra = map[string]string{ExtraCallerName: callerName}
	}
	return msg
}

// NewCallAccept builds an accept carrying the room both parties will join
func NewCallAccept(callID, fromUserID, toUserID, roomID string) SignalMessage {
	msg := newSignal(SignalTypeCallAccept, callID, fromUserID, toUserID)
	msg.RoomID = roomID
	return msg
}

// NewCallReject builds a reject. reason is optional.
func NewCallReject(callID, fromUserID, toUserID, reason string) SignalMessage {
	msg := newSignal(SignalTypeCallReject, callID, fromUserID, toUserID)
	if reason != "" {
		msg.Extra = map[string]string{ExtraReason: reason}
	}
	return msg
}

// NewCallCancel builds a cancel sent by the caller while still ringing
func NewCallCancel(callID, fromUserID, toUserID string) SignalMessage {
	return newSignal(SignalTypeCallCancel, callID, fromUserID, toUserID)
}

// NewCallEnd builds a hang-up for a connected call
func NewCallEnd(callID, fromUserID, toUserID string) SignalMessage {
	return newSignal(SignalTypeCallEnd, callID, fromUserID, toUserID)
}

// NewCallBusy builds the busy reply sent when a request arrives mid-call
func NewCallBusy(callID, fromUserID, toUserID string) SignalMessage {
	return newSignal(SignalTypeCallBusy, callID, fromUserID, toUserID)
}

// NewCallTimeout builds the timeout signal emitted when a call goes unanswered
func NewCallTimeout(callID, fromUserID, toUserID string) SignalMessage {
	return newSignal(SignalTypeCallTimeout, callID, fromUserID, toUserID)
}

// NewUserOnline announces that userID is reachable for signaling
func NewUserOnline(userID string) SignalMessage {
	return newSignal(SignalTypeUserOnline, "", userID, "")
}

// NewUserOffline announces that userID is leaving
func NewUserOffline(userID string) SignalMessage {
	return newSignal(SignalTypeUserOffline, "", userID, "")
}

// NewHeartbeat keeps the presence entry for userID alive
func NewHeartbeat(userID string) SignalMessage {
	return newSignal(SignalTypeHeartbeat, "", userID, "")
}
