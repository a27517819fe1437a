package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"goodbomb/internal/domain"
	"goodbomb/internal/logger"
	"goodbomb/internal/worldid"
)

var (
	// ErrVerificationRejected is returned when the provider rejects the proof
	ErrVerificationRejected = errors.New("identity verification rejected")

	// ErrVerifierUnavailable is returned when the provider cannot be reached
	ErrVerifierUnavailable = errors.New("identity provider unavailable")
)

// PlayerWriter persists verified players. May be nil.
type PlayerWriter interface {
	Upsert(ctx context.Context, p *domain.Player) error
	GetByID(ctx context.Context, id string) (*domain.Player, error)
}

// VerificationGate is the one-time identity gate per session: it forwards
// the opaque proof to the provider, records verified players, and answers
// player lookups on the press path from memory.
type VerificationGate struct {
	mu      sync.RWMutex
	players map[string]*domain.Player

	client  *worldid.Client
	repo    PlayerWriter
	action  string
	devMode bool
}

func NewVerificationGate(client *worldid.Client, repo PlayerWriter, action string, devMode bool) *VerificationGate {
	return &VerificationGate{
		players: make(map[string]*domain.Player),
		client:  client,
		repo:    repo,
		action:  action,
		devMode: devMode,
	}
}

// Verify forwards the proof to the identity provider and, on success,
// registers the player as verified. The nullifier hash doubles as the stable
// player id. In dev mode the provider round-trip is skipped.
func (g *VerificationGate) Verify(ctx context.Context, proof worldid.Proof, signalHash, username string) (*domain.Player, error) {
	if proof.NullifierHash == "" {
		return nil, ErrVerificationRejected
	}

	if !g.devMode {
		resp, err := g.client.Verify(ctx, proof, g.action, signalHash)
		if err != nil {
			logger.Error("identity provider call failed", "error", err)
			return nil, ErrVerifierUnavailable
		}
		if !resp.Success {
			logger.Info("verification rejected", "code", resp.Code, "detail", resp.Detail)
			return nil, ErrVerificationRejected
		}
	}

	player := &domain.Player{
		ID:         proof.NullifierHash,
		Username:   username,
		VerifiedAt: time.Now(),
	}
	g.Admit(player)

	if g.repo != nil {
		if err := g.repo.Upsert(ctx, player); err != nil {
			logger.Warn("failed to persist player", "player", player.ID, "error", err)
		}
	}

	logger.Info("player verified", "player", player.ID, "username", username)
	return player, nil
}

// Admit registers an already-verified player in the session registry.
func (g *VerificationGate) Admit(p *domain.Player) {
	g.mu.Lock()
	g.players[p.ID] = p
	g.mu.Unlock()
}

// Player returns the verified player for id, falling back to storage for
// sessions that outlive the in-memory registry. Returns nil if unknown.
func (g *VerificationGate) Player(ctx context.Context, id string) *domain.Player {
	g.mu.RLock()
	p, ok := g.players[id]
	g.mu.RUnlock()
	if ok {
		return p
	}

	if g.repo != nil {
		stored, err := g.repo.GetByID(ctx, id)
		if err == nil && stored != nil {
			g.Admit(stored)
			return stored
		}
	}
	return nil
}
