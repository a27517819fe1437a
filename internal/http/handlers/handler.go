package handlers

import (
	"goodbomb/internal/engine"
	"goodbomb/internal/payment"
	"goodbomb/internal/service"
	"goodbomb/internal/ws"
)

type Handler struct {
	Engine  *engine.Engine
	Gateway *payment.Gateway
	Gate    *service.VerificationGate
	Hub     *ws.Hub
}

func NewHandler(e *engine.Engine, gw *payment.Gateway, gate *service.VerificationGate, hub *ws.Hub) *Handler {
	return &Handler{
		Engine:  e,
		Gateway: gw,
		Gate:    gate,
		Hub:     hub,
	}
}

// getPlayerID extracts the authenticated player id set by the JWT middleware.
func getPlayerID(c interface{ Get(string) (any, bool) }) (string, bool) {
	v, ok := c.Get("player_id")
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
