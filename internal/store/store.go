package store

import (
	"sync"

	"goodbomb/internal/domain"
)

// State is a consistent point-in-time view of the game: the live round plus
// the append-only ledgers. Snapshots hand out copies, so callers can never
// observe a partially applied mutation.
type State struct {
	Round         domain.Round
	RecentPresses []domain.PressEvent
	Winners       []domain.WinnerRecord
}

// RoundStore owns all mutable game state. Every mutation goes through Apply
// under one mutex (single-writer discipline), which totally orders concurrent
// presses and makes the Active->Exploding transition race-free.
type RoundStore struct {
	mu          sync.Mutex
	state       State
	recentLimit int

	subs map[chan State]struct{}
}

// New creates an empty store. recentLimit caps the recent-presses ledger
// (most-recent-first).
func New(recentLimit int) *RoundStore {
	return &RoundStore{
		recentLimit: recentLimit,
		subs:        make(map[chan State]struct{}),
	}
}

// Snapshot returns a copy of the committed state. Never blocks on anything
// but the critical section itself.
func (s *RoundStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyState()
}

// Apply runs fn under the exclusive critical section. fn reports whether it
// mutated the state; subscribers are notified only for real mutations, so a
// no-op sweep (an expiry check against a live round) generates no traffic.
// If fn returns an error the state is left exactly as it was; fn must only
// mutate after all its checks have passed.
func (s *RoundStore) Apply(fn func(*State) (bool, error)) (State, error) {
	s.mu.Lock()
	changed, err := fn(&s.state)
	if err != nil {
		s.mu.Unlock()
		return State{}, err
	}
	s.trimPresses()
	committed := s.copyState()
	if changed {
		for ch := range s.subs {
			select {
			case ch <- committed:
			default: // slow subscriber, skip; it will catch up on the next commit
			}
		}
	}
	s.mu.Unlock()
	return committed, nil
}

// Subscribe registers a channel that receives the committed state after
// every mutation. The returned func unsubscribes.
func (s *RoundStore) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
	return ch, cancel
}

// AppendPress prepends e to the recent-presses ledger. Caller must already
// hold the critical section (i.e. call from inside Apply).
func (st *State) AppendPress(e domain.PressEvent) {
	st.RecentPresses = append([]domain.PressEvent{e}, st.RecentPresses...)
}

func (s *RoundStore) trimPresses() {
	if s.recentLimit > 0 && len(s.state.RecentPresses) > s.recentLimit {
		s.state.RecentPresses = s.state.RecentPresses[:s.recentLimit]
	}
}

func (s *RoundStore) copyState() State {
	out := State{Round: s.state.Round}
	if s.state.Round.LastActor != nil {
		actor := *s.state.Round.LastActor
		out.Round.LastActor = &actor
	}
	out.RecentPresses = append([]domain.PressEvent(nil), s.state.RecentPresses...)
	out.Winners = append([]domain.WinnerRecord(nil), s.state.Winners...)
	return out
}
