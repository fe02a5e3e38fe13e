// Package transport delivers signaling messages between a party and its peer.
//
// Implementations are best effort: Send never blocks on network round trips
// and no delivery or ordering guarantee is made across messages. Inbound
// signals are handed to a single registered handler, one at a time.
package transport

import "github.com/mossy-p/call-signaling/pkg/models"

// Transport is the bidirectional signaling channel consumed by the call manager
type Transport interface {
	// Send hands one signal off for delivery and returns without waiting
	// for the remote party.
	Send(msg models.SignalMessage) error
	// SetOnSignal registers the single inbound handler, replacing any
	// previous one. Signals arriving before a handler is set are dropped.
	SetOnSignal(handler func(models.SignalMessage))
	// Close tears the channel down. Further sends fail.
	Close() error
}
