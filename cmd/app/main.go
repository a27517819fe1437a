package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goodbomb/internal/config"
	"goodbomb/internal/db"
	"goodbomb/internal/domain"
	"goodbomb/internal/engine"
	httpServer "goodbomb/internal/http"
	"goodbomb/internal/http/handlers"
	"goodbomb/internal/http/middleware"
	"goodbomb/internal/logger"
	"goodbomb/internal/metrics"
	"goodbomb/internal/migrations"
	"goodbomb/internal/payment"
	"goodbomb/internal/repository"
	"goodbomb/internal/service"
	"goodbomb/internal/store"
	"goodbomb/internal/worldid"
	"goodbomb/internal/worldpay"
	"goodbomb/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "1.0.0"

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")

	cfg := config.Load()
	service.InitJWT()

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := migrations.Apply(ctx, dbPool); err != nil {
		logger.Fatal("migrations failed", "error", err)
	}

	playerRepo := repository.NewPlayerRepository(dbPool)
	roundRepo := repository.NewRoundRepository(dbPool)
	ledgerRepo := repository.NewLedgerRepository(dbPool)
	paymentRepo := repository.NewPaymentRepository(dbPool)
	history := repository.NewHistory(dbPool)

	var provider payment.Provider
	if !cfg.DevMode {
		provider = worldpay.NewClient(cfg.WorldAppID, cfg.WorldAPIKey)
	}
	gateway := payment.New(provider, paymentRepo, cfg.PressAmountMinor, cfg.DevMode)
	gate := service.NewVerificationGate(worldid.NewClient(cfg.WorldAppID), playerRepo, cfg.VerifyAction, cfg.DevMode)

	roundStore := store.New(cfg.RecentPressLimit)
	eng := engine.New(roundStore, gateway, history, engine.Config{
		RoundDuration:    cfg.RoundDuration,
		SettleDelay:      cfg.SettleDelay,
		PressAmountMinor: cfg.PressAmountMinor,
		WinnerShareBps:   cfg.WinnerShareBps,
		CarryShareBps:    cfg.CarryShareBps,
		RecentPressLimit: cfg.RecentPressLimit,
	})

	// Restore the latest round and the ledgers, then start (or adopt) a round
	restored, err := roundRepo.GetLatest(ctx)
	if err != nil {
		logger.Warn("failed to restore latest round", "error", err)
	}
	winners, err := ledgerRepo.Winners(ctx, 50)
	if err != nil {
		logger.Warn("failed to restore winners ledger", "error", err)
	}
	var presses []domain.PressEvent
	if restored != nil && restored.Status == domain.RoundActive {
		if presses, err = ledgerRepo.RecentPresses(ctx, cfg.RecentPressLimit); err != nil {
			logger.Warn("failed to restore press ledger", "error", err)
		}
	}
	eng.Bootstrap(ctx, restored, winners, presses)

	hub := ws.NewHub(handlers.RenderState)
	metrics.RegisterWSClients(func() float64 { return float64(hub.ClientCount()) })
	states, unsubscribe := roundStore.Subscribe()
	defer unsubscribe()
	go hub.Run(ctx, states)

	go eng.Run(ctx)

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.NewHandler(eng, gateway, gate, hub)
	httpServer.RegisterRoutes(r, dbPool, h, cfg, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.Println("server started on port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server forced to shutdown:", err)
	}

	log.Println("server exited")
}
