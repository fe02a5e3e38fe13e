package main

import (
	"os"

	"github.com/mossy-p/call-signaling/config"
	"github.com/mossy-p/call-signaling/internal/handlers"
	"github.com/mossy-p/call-signaling/internal/middleware"
	"github.com/mossy-p/call-signaling/internal/redis"
	"github.com/mossy-p/call-signaling/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	// Load configuration
	cfg := config.Load()

	// Connect to Redis
	if err := redis.Connect(cfg.Redis); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redis.Close()

	log.Info().Msg("Redis connection established")

	// Connection registry and ring-timeout watchdog
	registry := handlers.NewRegistry()
	watchdog := handlers.NewWatchdog(cfg.RingTimeout, func(msg models.SignalMessage) {
		registry.Deliver(msg)
	})
	defer watchdog.Stop()

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Global CORS middleware (runs before routing)
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := redis.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api")
	{
		// Login endpoint (public)
		apiGroup.POST("/auth/login", handlers.Login(cfg.JWTSecret))

		// Presence lookup (requires JWT)
		apiGroup.GET("/presence/:userId", middleware.JWTAuth(cfg.JWTSecret), handlers.GetPresence)
	}

	// WebSocket signaling endpoint (token-authenticated)
	wsGroup := router.Group("/ws")
	{
		wsGroup.GET("/signal", middleware.WSAuth(cfg.JWTSecret), handlers.HandleSignaling(registry, watchdog))
	}

	// Start server
	log.Info().Str("port", cfg.Port).Dur("ring_timeout", cfg.RingTimeout).Msg("Starting call signaling relay")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
