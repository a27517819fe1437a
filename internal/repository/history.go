package repository

import (
	"context"

	"goodbomb/internal/domain"
	"goodbomb/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// History implements the engine's Recorder on top of the round and ledger
// repositories. Writes are best-effort: the in-memory store is authoritative
// and the game never stalls on the database.
type History struct {
	rounds *RoundRepository
	ledger *LedgerRepository
}

func NewHistory(db *pgxpool.Pool) *History {
	return &History{
		rounds: NewRoundRepository(db),
		ledger: NewLedgerRepository(db),
	}
}

func (h *History) RoundStarted(ctx context.Context, r domain.Round) {
	if err := h.rounds.Create(ctx, &r); err != nil {
		logger.Warn("failed to persist round", "round_id", r.ID, "error", err)
	}
}

func (h *History) PressCommitted(ctx context.Context, r domain.Round, e domain.PressEvent) {
	if err := h.ledger.AddPress(ctx, &e); err != nil {
		logger.Warn("failed to persist press", "round_id", e.RoundID, "player", e.Player.ID, "error", err)
	}
	if err := h.rounds.UpdatePress(ctx, &r); err != nil {
		logger.Warn("failed to persist round state", "round_id", r.ID, "error", err)
	}
}

func (h *History) RoundSettled(ctx context.Context, r domain.Round, s domain.Settlement) {
	if err := h.rounds.Settle(ctx, &r, s); err != nil {
		logger.Warn("failed to persist settlement", "round_id", r.ID, "error", err)
	}
	if s.Winner != nil && r.ExplodedAt != nil {
		w := domain.WinnerRecord{
			RoundID:     s.RoundID,
			Player:      *s.Winner,
			AmountMinor: s.PayoutMinor,
			WonAt:       *r.ExplodedAt,
		}
		if err := h.ledger.AddWinner(ctx, &w); err != nil {
			logger.Warn("failed to persist winner", "round_id", r.ID, "error", err)
		}
	}
}
