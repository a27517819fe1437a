package handlers

import (
	"errors"
	"net/http"
	"time"

	"goodbomb/internal/engine"
	"goodbomb/internal/payment"

	"github.com/gin-gonic/gin"
)

// GetState handles GET /api/game/state. Expiry is checked lazily so the state
// a client sees is never a stale "active" round past its deadline, even if
// the ticker goroutine is behind.
func (h *Handler) GetState(c *gin.Context) {
	now := time.Now()
	st, _ := h.Engine.CheckExpiry(c.Request.Context(), now)
	c.JSON(http.StatusOK, NewStateView(st, now))
}

type pressRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// Press handles POST /api/game/press: spends a confirmed payment reference
// and applies the contribution.
func (h *Handler) Press(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req pressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	player := h.Gate.Player(c.Request.Context(), playerID)
	if player == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "player not verified"})
		return
	}

	st, err := h.Engine.TryPress(c.Request.Context(), player, req.Reference)
	if err != nil {
		pressError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   NewStateView(st, time.Now()),
	})
}

// GetWinners handles GET /api/game/winners (most recent first).
func (h *Handler) GetWinners(c *gin.Context) {
	st := h.Engine.Store().Snapshot()

	winners := make([]WinnerView, 0, len(st.Winners))
	for _, w := range st.Winners {
		winners = append(winners, winnerView(w))
	}
	c.JSON(http.StatusOK, gin.H{"winners": winners})
}

// pressError maps engine and payment errors to HTTP responses. Round-state
// rejections are 409 so clients can tell "try again next round" apart from
// payment problems.
func pressError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrNotVerified):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "player not verified"})
	case errors.Is(err, engine.ErrNotActive):
		c.JSON(http.StatusConflict, gin.H{"error": "round not active"})
	case errors.Is(err, engine.ErrDuplicateActor):
		c.JSON(http.StatusConflict, gin.H{"error": "you are already the last presser"})
	case errors.Is(err, payment.ErrInvalidReference):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown payment reference"})
	case errors.Is(err, payment.ErrReferenceOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "payment reference owned by another player"})
	case errors.Is(err, payment.ErrAlreadyConsumed):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment reference already used"})
	case errors.Is(err, payment.ErrNotConfirmed):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment not confirmed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
