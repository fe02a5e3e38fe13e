package handlers

import (
	"encoding/json"
	"sync"

	"github.com/mossy-p/call-signaling/pkg/models"
	"github.com/rs/zerolog/log"
)

// Registry tracks the live signaling connection for each user and routes
// signals to their recipient. A user has at most one connection; a new one
// replaces the old.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry creates an empty connection registry
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
	}
}

// Attach registers c as the connection for its user and returns the
// connection it replaced, if any. The caller is responsible for closing the
// replaced connection.
func (r *Registry) Attach(c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	replaced := r.clients[c.UserID]
	r.clients[c.UserID] = c
	return replaced
}

// Detach removes c if it is still the current connection for its user.
// Returns false when c was already replaced by a newer connection.
func (r *Registry) Detach(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.clients[c.UserID]
	if !ok || current.ConnID != c.ConnID {
		return false
	}
	delete(r.clients, c.UserID)
	return true
}

// Deliver routes msg to its toUserId. Returns false when the recipient has no
// live connection; the signal is dropped, matching the channel's best-effort
// contract.
func (r *Registry) Deliver(msg models.SignalMessage) bool {
	r.mu.RLock()
	client, ok := r.clients[msg.ToUserID]
	r.mu.RUnlock()

	if !ok {
		log.Warn().
			Str("type", string(msg.Type)).
			Str("to", msg.ToUserID).
			Str("call_id", msg.CallID).
			Msg("Recipient not connected, dropping signal")
		return false
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal signal")
		return false
	}

	select {
	case client.Send <- data:
		return true
	default:
		log.Warn().Str("to", msg.ToUserID).Msg("Send buffer full, dropping signal")
		return false
	}
}

// Connected reports whether userID has a live connection on this relay
func (r *Registry) Connected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[userID]
	return ok
}
