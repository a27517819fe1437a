package domain

import "time"

// PaymentStatus represents payment intent processing status
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// PaymentIntent tracks one external payment attempt. The reference is unique
// per attempted press and never reused; a Confirmed intent may be consumed by
// the round engine exactly once.
type PaymentIntent struct {
	Reference   string        `db:"reference" json:"reference"`
	PlayerID    string        `db:"player_id" json:"player_id"`
	AmountMinor int64         `db:"amount_minor" json:"amount_minor"`
	Status      PaymentStatus `db:"status" json:"status"`
	TxID        string        `db:"tx_id" json:"tx_id,omitempty"`
	Consumed    bool          `db:"consumed" json:"consumed"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	ConfirmedAt *time.Time    `db:"confirmed_at" json:"confirmed_at,omitempty"`
}
