package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"goodbomb/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthHandler reports process and dependency health. The round store is
// part of readiness: a store without a bootstrapped round cannot serve game
// traffic even when the process is up.
type HealthHandler struct {
	db        *pgxpool.Pool
	rounds    *store.RoundStore
	startTime time.Time
	version   string
}

// NewHealthHandler creates a health handler. db may be nil when the service
// runs without persistence; the database check then reports "disabled".
func NewHealthHandler(db *pgxpool.Pool, rounds *store.RoundStore, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		rounds:    rounds,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse is the readiness probe payload.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Liveness returns simple alive status (for k8s liveness probe)
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness returns detailed health status (for k8s readiness probe)
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.db == nil {
		checks["database"] = "disabled"
	} else if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		allHealthy = false
	} else {
		checks["database"] = "healthy"
	}

	st := h.rounds.Snapshot()
	if st.Round.ID == 0 {
		checks["round_engine"] = "unhealthy: no round"
		allHealthy = false
	} else {
		checks["round_engine"] = string(st.Round.Status) + " round " + strconv.FormatInt(st.Round.ID, 10)
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// Health is a combined endpoint for basic health checks
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unavailable",
			})
			return
		}
	}

	if h.rounds.Snapshot().Round.ID == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "round engine not started",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}
