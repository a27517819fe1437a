package http

import (
	"time"

	"goodbomb/internal/config"
	"goodbomb/internal/http/handlers"
	"goodbomb/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, h *handlers.Handler, cfg *config.Config, version string) {
	healthHandler := handlers.NewHealthHandler(db, h.Engine.Store(), version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	api := r.Group("/api")
	api.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))

	// Identity verification; issues the session token. The in-memory limiter
	// holds even when Redis is not configured.
	api.POST("/verify", middleware.SimpleRateLimit(10, time.Minute), h.Verify)

	// Game state (public; lazy expiry check keeps reads fresh)
	api.GET("/game/state", h.GetState)
	api.GET("/game/winners", h.GetWinners)

	// Press rate limiter (per player, not per IP)
	pressRL := middleware.PressRateLimit(cfg.PressRateLimit, cfg.PressRateWindow)

	api.POST("/game/press", middleware.JWT(), pressRL, h.Press)

	// Payments
	api.POST("/payment/initiate", middleware.JWT(), h.InitiatePayment)
	api.POST("/payment/confirm", middleware.JWT(), pressRL, h.ConfirmPayment)
	api.GET("/payment/status", middleware.JWT(), h.PaymentStatus)

	// WebSocket state push
	r.GET("/ws", h.WS)
}
