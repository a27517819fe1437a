package handlers

import (
	"errors"
	"net/http"

	"goodbomb/internal/service"
	"goodbomb/internal/worldid"

	"github.com/gin-gonic/gin"
)

type verifyRequest struct {
	Proof      worldid.Proof `json:"proof" binding:"required"`
	SignalHash string        `json:"signal_hash"`
	Username   string        `json:"username"`
}

// Verify handles POST /api/verify: forwards the identity proof to the
// provider and, on success, issues a session token. The nullifier hash is the
// stable player id, so re-verifying the same person yields the same account.
func (h *Handler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	player, err := h.Gate.Verify(c.Request.Context(), req.Proof, req.SignalHash, req.Username)
	if err != nil {
		if errors.Is(err, service.ErrVerifierUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "identity provider unavailable"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "verification rejected"})
		return
	}

	token, err := service.GenerateJWT(player.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"player": playerView(*player),
	})
}
