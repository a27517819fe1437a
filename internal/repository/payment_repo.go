package repository

import (
	"context"
	"time"

	"goodbomb/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.PaymentIntent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO payments (reference, player_id, amount_minor, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.Reference, p.PlayerID, p.AmountMinor, p.Status, p.CreatedAt)
	return err
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, reference string, status domain.PaymentStatus, txID string) error {
	if status == domain.PaymentStatusConfirmed {
		now := time.Now()
		_, err := r.db.Exec(ctx, `
			UPDATE payments SET status = $2, tx_id = $3, confirmed_at = $4 WHERE reference = $1
		`, reference, status, txID, now)
		return err
	}
	_, err := r.db.Exec(ctx, `
		UPDATE payments SET status = $2, tx_id = $3 WHERE reference = $1
	`, reference, status, txID)
	return err
}

func (r *PaymentRepository) MarkConsumed(ctx context.Context, reference string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payments SET consumed = TRUE WHERE reference = $1
	`, reference)
	return err
}
