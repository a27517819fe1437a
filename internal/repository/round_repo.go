package repository

import (
	"context"

	"goodbomb/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoundRepository struct {
	db *pgxpool.Pool
}

func NewRoundRepository(db *pgxpool.Pool) *RoundRepository {
	return &RoundRepository{db: db}
}

// Create records a freshly started round
func (r *RoundRepository) Create(ctx context.Context, round *domain.Round) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO rounds (id, status, pot_minor, deadline, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, round.ID, round.Status, round.PotMinor, round.Deadline, round.StartedAt)
	return err
}

// UpdatePress keeps the durable row in step with the live round after a press
func (r *RoundRepository) UpdatePress(ctx context.Context, round *domain.Round) error {
	var lastActor string
	if round.LastActor != nil {
		lastActor = round.LastActor.ID
	}
	_, err := r.db.Exec(ctx, `
		UPDATE rounds SET pot_minor = $2, deadline = $3, last_actor_id = $4
		WHERE id = $1
	`, round.ID, round.PotMinor, round.Deadline, lastActor)
	return err
}

// Settle finalizes the round row with the settlement split
func (r *RoundRepository) Settle(ctx context.Context, round *domain.Round, s domain.Settlement) error {
	_, err := r.db.Exec(ctx, `
		UPDATE rounds
		SET status = $2, pot_minor = $3, exploded_at = $4, settled_at = $4,
		    carry_minor = $5, payout_minor = $6, fee_minor = $7
		WHERE id = $1
	`, round.ID, domain.RoundSettled, s.PotMinor, round.ExplodedAt,
		s.CarryMinor, s.PayoutMinor, s.FeeMinor)
	return err
}

// GetLatest returns the most recent round, or nil when the table is empty.
// Used at boot to adopt a still-active round or seed the next one.
func (r *RoundRepository) GetLatest(ctx context.Context) (*domain.Round, error) {
	row := r.db.QueryRow(ctx, `
		SELECT r.id, r.status, r.pot_minor, r.deadline, r.started_at, r.exploded_at,
		       r.settled_at, r.carry_minor, r.last_actor_id, COALESCE(p.username, '')
		FROM rounds r
		LEFT JOIN players p ON p.id = r.last_actor_id
		ORDER BY r.id DESC
		LIMIT 1
	`)

	var round domain.Round
	var lastActorID, lastActorName string
	if err := row.Scan(
		&round.ID, &round.Status, &round.PotMinor, &round.Deadline,
		&round.StartedAt, &round.ExplodedAt, &round.SettledAt, &round.CarryMinor,
		&lastActorID, &lastActorName,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if lastActorID != "" {
		round.LastActor = &domain.Player{ID: lastActorID, Username: lastActorName}
	}
	return &round, nil
}
