package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/call-signaling/pkg/models"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Client represents one authenticated signaling connection
type Client struct {
	UserID string
	ConnID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// HandleSignaling upgrades the connection and starts relaying signals for the
// authenticated user. Requires the WebSocket auth middleware to have set
// user_id.
func HandleSignaling(reg *Registry, wd *Watchdog) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error().Err(err).Msg("Failed to upgrade connection")
			return
		}

		client := &Client{
			UserID: userID.(string),
			ConnID: uuid.New().String(),
			Conn:   conn,
			Send:   make(chan []byte, 256),
		}

		if replaced := reg.Attach(client); replaced != nil {
			log.Info().Str("user_id", client.UserID).Msg("Replacing existing signaling connection")
			replaced.Conn.Close()
		}

		MarkOnline(client.UserID)
		log.Info().Str("user_id", client.UserID).Str("conn_id", client.ConnID).Msg("User connected")

		go client.writePump()
		go client.readPump(reg, wd)
	}
}

func (c *Client) readPump(reg *Registry, wd *Watchdog) {
	defer func() {
		if reg.Detach(c) {
			MarkOffline(c.UserID)
			log.Info().Str("user_id", c.UserID).Msg("User disconnected")
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		// A pong proves the client is alive even when it sends no signals,
		// so the presence entry is refreshed here too
		MarkOnline(c.UserID)
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", c.UserID).Msg("WebSocket error")
			}
			break
		}

		var msg models.SignalMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Str("user_id", c.UserID).Msg("Failed to parse signal")
			continue
		}

		// The sender identity always comes from the authenticated connection,
		// never from the payload
		msg.FromUserID = c.UserID
		if msg.Timestamp == 0 {
			msg.Timestamp = time.Now().UnixMilli()
		}

		switch msg.Type {
		case models.SignalTypeUserOnline, models.SignalTypeHeartbeat:
			MarkOnline(c.UserID)
		case models.SignalTypeUserOffline:
			MarkOffline(c.UserID)
		default:
			if !msg.IsCallSignal() {
				log.Debug().Str("type", string(msg.Type)).Str("user_id", c.UserID).Msg("Unknown signal type, dropping")
				continue
			}
			// Arm or disarm the ring watchdog before delivery: the timeout
			// must be scheduled even when the recipient is offline, so the
			// caller eventually stops ringing.
			wd.Observe(msg)
			reg.Deliver(msg)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("user_id", c.UserID).Msg("Failed to write signal")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
