package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/call-signaling/internal/redis"
	"github.com/rs/zerolog/log"
)

// presenceTTL is refreshed by heartbeats and pongs; a crashed client ages out
const presenceTTL = 90 * time.Second

// Presence is best effort: without a Redis connection the relay still routes
// signals, and every lookup reads offline.

// MarkOnline records userID as reachable for signaling
func MarkOnline(userID string) {
	client := redis.GetClient()
	if client == nil {
		return
	}

	if err := client.Set(redis.GetContext(), "presence:"+userID, "1", presenceTTL).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to mark user online")
	}
}

// MarkOffline removes the presence entry for userID
func MarkOffline(userID string) {
	client := redis.GetClient()
	if client == nil {
		return
	}

	if err := client.Del(redis.GetContext(), "presence:"+userID).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to mark user offline")
	}
}

// IsOnline reports whether userID has a live presence entry.
// A Redis failure reads as offline.
func IsOnline(userID string) bool {
	client := redis.GetClient()
	if client == nil {
		return false
	}

	n, err := client.Exists(redis.GetContext(), "presence:"+userID).Result()
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to check presence")
		return false
	}
	return n > 0
}

// GetPresence reports whether a user is online (requires authentication)
func GetPresence(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"online":  IsOnline(userID),
	})
}
