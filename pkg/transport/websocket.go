package transport

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mossy-p/call-signaling/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// WSTransport is a signaling connection to the relay server over WebSocket.
// The relay authenticates the connection from the JWT and routes each signal
// to its toUserId.
type WSTransport struct {
	userID    string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	writeDone chan struct{}
	once      sync.Once
	pingEvery time.Duration

	mu      sync.RWMutex
	handler func(models.SignalMessage)
}

// DialWS connects to the relay's signaling endpoint, announces the user as
// online and starts the read and write pumps. serverURL is the relay base URL
// (e.g. "ws://localhost:8080"); token is the JWT obtained from the login
// endpoint.
func DialWS(serverURL, token, userID string) (*WSTransport, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	u.Path = "/ws/signal"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay: %w", err)
	}

	t := newWSTransport(conn, userID)
	t.start()

	if err := t.Send(models.NewUserOnline(userID)); err != nil {
		log.Warn().Err(err).Msg("Failed to announce online")
	}

	log.Info().Str("user_id", userID).Msg("Connected to signaling relay")
	return t, nil
}

func newWSTransport(conn *websocket.Conn, userID string) *WSTransport {
	return &WSTransport{
		userID:    userID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		writeDone: make(chan struct{}),
		pingEvery: pingPeriod,
	}
}

func (t *WSTransport) start() {
	go t.writePump()
	go t.readPump()
}

// Send queues msg for delivery to the relay
func (t *WSTransport) Send(msg models.SignalMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}

	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	select {
	case t.send <- data:
		return nil
	default:
		log.Warn().Str("type", string(msg.Type)).Msg("Send buffer full, dropping signal")
		return nil
	}
}

// SetOnSignal registers the single inbound handler
func (t *WSTransport) SetOnSignal(handler func(models.SignalMessage)) {
	t.mu.Lock()
	t.handler = handler
	t.mu.Unlock()
}

// Close announces the user as offline and closes the connection once the
// write pump has flushed the announce
func (t *WSTransport) Close() error {
	_ = t.Send(models.NewUserOffline(t.userID))
	t.once.Do(func() { close(t.done) })
	select {
	case <-t.writeDone:
	case <-time.After(writeWait):
	}
	return t.conn.Close()
}

func (t *WSTransport) readPump() {
	defer t.conn.Close()

	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var msg models.SignalMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Msg("Failed to parse inbound signal")
			continue
		}

		t.mu.RLock()
		handler := t.handler
		t.mu.RUnlock()
		if handler == nil {
			log.Debug().Str("type", string(msg.Type)).Msg("No handler registered, dropping signal")
			continue
		}
		handler(msg)
	}
}

func (t *WSTransport) writePump() {
	ticker := time.NewTicker(t.pingEvery)
	defer func() {
		ticker.Stop()
		close(t.writeDone)
		t.conn.Close()
	}()

	for {
		select {
		case <-t.done:
			// Flush anything still queued (the offline announce rides here)
			// before the close frame
			for {
				select {
				case data := <-t.send:
					t.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
						return
					}
				default:
					t.conn.SetWriteDeadline(time.Now().Add(writeWait))
					t.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}

		case data := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Msg("Failed to write signal")
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			// Heartbeat keeps the relay's presence entry alive between calls
			if hb, err := json.Marshal(models.NewHeartbeat(t.userID)); err == nil {
				t.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := t.conn.WriteMessage(websocket.TextMessage, hb); err != nil {
					return
				}
			}
		}
	}
}
