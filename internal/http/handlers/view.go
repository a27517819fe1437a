package handlers

import (
	"encoding/json"
	"time"

	"goodbomb/internal/domain"
	"goodbomb/internal/store"
	"goodbomb/internal/worldpay"
)

// PlayerView is the public projection of a player: id and display name only.
type PlayerView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type PressView struct {
	Player      PlayerView `json:"player"`
	AmountMinor int64      `json:"amount_minor"`
	PressedAt   time.Time  `json:"pressed_at"`
}

type WinnerView struct {
	RoundID     int64      `json:"round_id"`
	Player      PlayerView `json:"player"`
	AmountMinor int64      `json:"amount_minor"`
	AmountWLD   float64    `json:"amount_wld"`
	WonAt       time.Time  `json:"won_at"`
}

// StateView is the wire shape of a committed game state, shared by the REST
// state endpoint and the WebSocket push.
type StateView struct {
	RoundID         int64        `json:"round_id"`
	Status          string       `json:"status"`
	PotMinor        int64        `json:"pot_minor"`
	PotWLD          float64      `json:"pot_wld"`
	Deadline        time.Time    `json:"deadline"`
	TimeLeftSeconds int64        `json:"time_left_seconds"`
	LastActor       *PlayerView  `json:"last_actor,omitempty"`
	RecentPresses   []PressView  `json:"recent_presses"`
	Winners         []WinnerView `json:"winners"`
}

func playerView(p domain.Player) PlayerView {
	return PlayerView{ID: p.ID, Username: p.Username}
}

func winnerView(w domain.WinnerRecord) WinnerView {
	return WinnerView{
		RoundID:     w.RoundID,
		Player:      playerView(w.Player),
		AmountMinor: w.AmountMinor,
		AmountWLD:   worldpay.MinorToWLD(w.AmountMinor),
		WonAt:       w.WonAt,
	}
}

// NewStateView projects a committed state for clients. time_left_seconds is
// clamped at zero; exploded rounds always report zero.
func NewStateView(st store.State, now time.Time) StateView {
	view := StateView{
		RoundID:       st.Round.ID,
		Status:        string(st.Round.Status),
		PotMinor:      st.Round.PotMinor,
		PotWLD:        worldpay.MinorToWLD(st.Round.PotMinor),
		Deadline:      st.Round.Deadline,
		RecentPresses: make([]PressView, 0, len(st.RecentPresses)),
	}
	if st.Round.Status == domain.RoundActive {
		if left := st.Round.Deadline.Sub(now); left > 0 {
			view.TimeLeftSeconds = int64(left.Seconds())
		}
	}
	if st.Round.LastActor != nil {
		actor := playerView(*st.Round.LastActor)
		view.LastActor = &actor
	}
	for _, e := range st.RecentPresses {
		view.RecentPresses = append(view.RecentPresses, PressView{
			Player:      playerView(e.Player),
			AmountMinor: e.AmountMinor,
			PressedAt:   e.PressedAt,
		})
	}
	view.Winners = make([]WinnerView, 0, len(st.Winners))
	for _, w := range st.Winners {
		view.Winners = append(view.Winners, winnerView(w))
	}
	return view
}

type wsEnvelope struct {
	Type  string    `json:"type"`
	State StateView `json:"state"`
}

// RenderState serializes a committed state as a WebSocket push frame.
func RenderState(st store.State) []byte {
	b, err := json.Marshal(wsEnvelope{Type: "state", State: NewStateView(st, time.Now())})
	if err != nil {
		return []byte(`{"type":"state"}`)
	}
	return b
}
