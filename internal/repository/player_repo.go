package repository

import (
	"context"

	"goodbomb/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlayerRepository struct {
	db *pgxpool.Pool
}

func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Upsert inserts the player or refreshes username/verified_at on re-verification
func (r *PlayerRepository) Upsert(ctx context.Context, p *domain.Player) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO players (id, username, verified_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username, verified_at = EXCLUDED.verified_at
		RETURNING created_at
	`, p.ID, p.Username, p.VerifiedAt).Scan(&p.CreatedAt)
}

func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*domain.Player, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, COALESCE(username, ''), verified_at, created_at
		FROM players
		WHERE id = $1
	`, id)

	var p domain.Player
	if err := row.Scan(&p.ID, &p.Username, &p.VerifiedAt, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &p, nil
}
