package handlers

import (
	"errors"
	"net/http"
	"time"

	"goodbomb/internal/domain"
	"goodbomb/internal/payment"

	"github.com/gin-gonic/gin"
)

// InitiatePayment handles POST /api/payment/initiate: issues a fresh
// reference the wallet includes in the payment, so confirmations can be
// matched back to this player.
func (h *Handler) InitiatePayment(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	intent, err := h.Gateway.Initiate(c.Request.Context(), playerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           intent.Reference,
		"amount_minor": intent.AmountMinor,
	})
}

// PaymentStatus handles GET /api/payment/status: reports the caller's view
// of an issued reference. References issued to other players are
// indistinguishable from unknown ones.
func (h *Handler) PaymentStatus(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	reference := c.Query("reference")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference required"})
		return
	}

	intent, err := h.Gateway.Intent(reference)
	if err != nil || intent.PlayerID != playerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown payment reference"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reference":    intent.Reference,
		"status":       intent.Status,
		"amount_minor": intent.AmountMinor,
		"consumed":     intent.Consumed,
	})
}

type confirmRequest struct {
	Reference     string `json:"reference" binding:"required"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status" binding:"required"`
}

// ConfirmPayment handles POST /api/payment/confirm: validates the
// wallet-reported outcome against the payment provider and, when confirmed,
// immediately spends the reference as a press. Press rejections leave the
// confirmed reference unspent, so the client may retry on the next round.
func (h *Handler) ConfirmPayment(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	intent, err := h.Gateway.Confirm(c.Request.Context(), req.Reference, req.TransactionID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidReference):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown payment reference"})
		case errors.Is(err, payment.ErrProviderUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	if intent.Status != domain.PaymentStatusConfirmed {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":  "payment not confirmed",
			"status": intent.Status,
		})
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
