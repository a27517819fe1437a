package domain

import "time"

// RoundStatus represents the lifecycle state of a round
type RoundStatus string

const (
	RoundActive    RoundStatus = "active"
	RoundExploding RoundStatus = "exploding"
	RoundSettled   RoundStatus = "settled"
)

// Round is the single active game instance. The pot is held in minor units
// (0.001 WLD) so split arithmetic stays in integers.
type Round struct {
	ID         int64       `db:"id" json:"id"`
	Status     RoundStatus `db:"status" json:"status"`
	PotMinor   int64       `db:"pot_minor" json:"pot_minor"`
	Deadline   time.Time   `db:"deadline" json:"deadline"`
	LastActor  *Player     `json:"last_actor,omitempty"`
	StartedAt  time.Time   `db:"started_at" json:"started_at"`
	ExplodedAt *time.Time  `db:"exploded_at" json:"exploded_at,omitempty"`
	SettledAt  *time.Time  `db:"settled_at" json:"settled_at,omitempty"`
	// CarryMinor is set at settlement: the seed pot of the next round
	CarryMinor int64 `db:"carry_minor" json:"-"`
}

// PressEvent records one accepted contribution. Immutable once appended.
type PressEvent struct {
	RoundID     int64     `db:"round_id" json:"round_id"`
	Player      Player    `json:"player"`
	AmountMinor int64     `db:"amount_minor" json:"amount_minor"`
	PressedAt   time.Time `db:"pressed_at" json:"pressed_at"`
}

// WinnerRecord is the settlement outcome of one round. AmountMinor is the
// payout share, not the full pot.
type WinnerRecord struct {
	RoundID     int64     `db:"round_id" json:"round_id"`
	Player      Player    `json:"player"`
	AmountMinor int64     `db:"amount_minor" json:"amount_minor"`
	WonAt       time.Time `db:"won_at" json:"won_at"`
}

// Settlement is the split computed exactly once when a round explodes.
// PayoutMinor + CarryMinor + FeeMinor always equals the settled pot; the fee
// share absorbs floor-rounding remainders and is reported to the external
// settlement collaborator, never credited in-core.
type Settlement struct {
	RoundID     int64   `json:"round_id"`
	Winner      *Player `json:"winner,omitempty"`
	PotMinor    int64   `json:"pot_minor"`
	PayoutMinor int64   `json:"payout_minor"`
	CarryMinor  int64   `json:"carry_minor"`
	FeeMinor    int64   `json:"fee_minor"`
}
