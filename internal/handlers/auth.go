package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mossy-p/call-signaling/internal/middleware"
)

// tokenTTL bounds a signaling session; clients re-login to keep calling
const tokenTTL = 12 * time.Hour

// LoginRequest is the body of a login call
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the signaling token and the identity it is bound to
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Login issues a signaling token for the given identity. There is no user
// store: any non-blank username becomes the signaling identity, which is
// enough for development and for deployments that put a real identity
// provider in front of the relay.
func Login(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}

		userID := strings.TrimSpace(req.Username)
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username must not be blank"})
			return
		}

		token, err := issueToken(jwtSecret, userID, tokenTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
			return
		}

		c.JSON(http.StatusOK, LoginResponse{Token: token, UserID: userID})
	}
}

// issueToken signs a signaling token binding userID for ttl
func issueToken(jwtSecret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := middleware.JWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "call-signaling",
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}
