package repository

import (
	"context"

	"goodbomb/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository persists the append-only press and winner ledgers.
type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) AddPress(ctx context.Context, e *domain.PressEvent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO presses (round_id, player_id, username, amount_minor, pressed_at)
		VALUES ($1, $2, $3, $4, $5)
	`, e.RoundID, e.Player.ID, e.Player.Username, e.AmountMinor, e.PressedAt)
	return err
}

func (r *LedgerRepository) RecentPresses(ctx context.Context, limit int) ([]domain.PressEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT round_id, player_id, COALESCE(username, ''), amount_minor, pressed_at
		FROM presses
		ORDER BY pressed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presses []domain.PressEvent
	for rows.Next() {
		var e domain.PressEvent
		if err := rows.Scan(&e.RoundID, &e.Player.ID, &e.Player.Username, &e.AmountMinor, &e.PressedAt); err != nil {
			return nil, err
		}
		presses = append(presses, e)
	}
	return presses, rows.Err()
}

func (r *LedgerRepository) AddWinner(ctx context.Context, w *domain.WinnerRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO winners (round_id, player_id, username, amount_minor, won_at)
		VALUES ($1, $2, $3, $4, $5)
	`, w.RoundID, w.Player.ID, w.Player.Username, w.AmountMinor, w.WonAt)
	return err
}

// Winners returns the winners ledger, most recent first
func (r *LedgerRepository) Winners(ctx context.Context, limit int) ([]domain.WinnerRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT round_id, player_id, COALESCE(username, ''), amount_minor, won_at
		FROM winners
		ORDER BY won_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var winners []domain.WinnerRecord
	for rows.Next() {
		var w domain.WinnerRecord
		if err := rows.Scan(&w.RoundID, &w.Player.ID, &w.Player.Username, &w.AmountMinor, &w.WonAt); err != nil {
			return nil, err
		}
		winners = append(winners, w)
	}
	return winners, rows.Err()
}
