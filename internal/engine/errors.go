package engine

import "errors"

var (
	// ErrNotActive is returned when a press arrives while the round is
	// exploding or settled. The caller should retry against the next round.
	ErrNotActive = errors.New("round not active")

	// ErrNotVerified is returned for players that never passed the
	// identity gate.
	ErrNotVerified = errors.New("player not verified")

	// ErrDuplicateActor enforces the consecutive-press rule: a player
	// cannot press twice in a row.
	ErrDuplicateActor = errors.New("same player pressed twice in a row")
)
