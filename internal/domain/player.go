package domain

import "time"

// Player is a verified actor identity. ID is the nullifier hash issued by
// the identity provider and is stable across sessions.
type Player struct {
	ID         string    `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	VerifiedAt time.Time `db:"verified_at" json:"verified_at"`
	CreatedAt  time.Time `db:"created_at" json:"-"`
}

// Verified reports whether the player has passed the identity gate.
func (p *Player) Verified() bool {
	return p != nil && !p.VerifiedAt.IsZero()
}
