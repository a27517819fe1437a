package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"goodbomb/internal/domain"
)

func activeRound(id int64) domain.Round {
	now := time.Now()
	return domain.Round{
		ID:        id,
		Status:    domain.RoundActive,
		Deadline:  now.Add(time.Minute),
		StartedAt: now,
	}
}

func TestApplyCommitsAndReturnsSnapshot(t *testing.T) {
	s := New(5)

	st, err := s.Apply(func(st *State) (bool, error) {
		st.Round = activeRound(1)
		st.Round.PotMinor = 100
		return true, nil
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if st.Round.PotMinor != 100 {
		t.Fatalf("expected pot 100, got %d", st.Round.PotMinor)
	}
	if got := s.Snapshot().Round.PotMinor; got != 100 {
		t.Fatalf("snapshot pot = %d, want 100", got)
	}
}

func TestApplyErrorLeavesStateUntouched(t *testing.T) {
	s := New(5)
	s.Apply(func(st *State) (bool, error) {
		st.Round = activeRound(1)
		st.Round.PotMinor = 100
		return true, nil
	})

	sentinel := errors.New("rejected")
	_, err := s.Apply(func(st *State) (bool, error) {
		return false, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if got := s.Snapshot().Round.PotMinor; got != 100 {
		t.Fatalf("pot changed after failed Apply: %d", got)
	}
}

func TestSnapshotIsIsolatedFromStore(t *testing.T) {
	s := New(5)
	s.Apply(func(st *State) (bool, error) {
		st.Round = activeRound(1)
		st.Round.LastActor = &domain.Player{ID: "alice"}
		st.AppendPress(domain.PressEvent{RoundID: 1, Player: domain.Player{ID: "alice"}})
		return true, nil
	})

	snap := s.Snapshot()
	snap.Round.LastActor.ID = "mallory"
	snap.RecentPresses[0].Player.ID = "mallory"

	fresh := s.Snapshot()
	if fresh.Round.LastActor.ID != "alice" {
		t.Fatalf("last actor mutated through snapshot: %s", fresh.Round.LastActor.ID)
	}
	if fresh.RecentPresses[0].Player.ID != "alice" {
		t.Fatalf("press ledger mutated through snapshot: %s", fresh.RecentPresses[0].Player.ID)
	}
}

func TestRecentPressesTrimmedMostRecentFirst(t *testing.T) {
	s := New(3)
	for i := 1; i <= 5; i++ {
		amount := int64(i)
		s.Apply(func(st *State) (bool, error) {
			st.AppendPress(domain.PressEvent{RoundID: 1, AmountMinor: amount})
			return true, nil
		})
	}

	presses := s.Snapshot().RecentPresses
	if len(presses) != 3 {
		t.Fatalf("expected 3 recent presses, got %d", len(presses))
	}
	for i, want := range []int64{5, 4, 3} {
		if presses[i].AmountMinor != want {
			t.Fatalf("press[%d] = %d, want %d", i, presses[i].AmountMinor, want)
		}
	}
}

func TestConcurrentAppliesAreTotallyOrdered(t *testing.T) {
	s := New(5)
	s.Apply(func(st *State) (bool, error) {
		st.Round = activeRound(1)
		return true, nil
	})

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			s.Apply(func(st *State) (bool, error) {
				st.Round.PotMinor += 100
				return true, nil
			})
		}()
	}
	wg.Wait()

	if got := s.Snapshot().Round.PotMinor; got != workers*100 {
		t.Fatalf("pot = %d, want %d", got, workers*100)
	}
}

func TestSubscribeReceivesCommittedStates(t *testing.T) {
	s := New(5)
	states, cancel := s.Subscribe()
	defer cancel()

	s.Apply(func(st *State) (bool, error) {
		st.Round = activeRound(1)
		st.Round.PotMinor = 100
		return true, nil
	})

	select {
	case st := <-states:
		if st.Round.PotMinor != 100 {
			t.Fatalf("subscriber saw pot %d, want 100", st.Round.PotMinor)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber received nothing")
	}

	cancel()
	s.Apply(func(st *State) (bool, error) {
		st.Round.PotMinor = 200
		return true, nil
	})
	select {
	case st, ok := <-states:
		if ok && st.Round.PotMinor == 200 {
			t.Fatal("cancelled subscriber still receiving")
		}
	default:
	}
}

func TestApplyWithoutMutationDoesNotNotify(t *testing.T) {
	s := New(5)
	s.Apply(func(st *State) (bool, error) {
		st.Round = activeRound(1)
		return true, nil
	})

	states, cancel := s.Subscribe()
	defer cancel()

	// Read-only sweeps must stay silent even when they succeed.
	for i := 0; i < 10; i++ {
		if _, err := s.Apply(func(st *State) (bool, error) {
			return false, nil
		}); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}

	select {
	case st := <-states:
		t.Fatalf("subscriber notified for no-op Apply: round %d", st.Round.ID)
	case <-time.After(50 * time.Millisecond):
	}

	// A real mutation still reaches the same subscriber.
	s.Apply(func(st *State) (bool, error) {
		st.Round.PotMinor = 100
		return true, nil
	})
	select {
	case st := <-states:
		if st.Round.PotMinor != 100 {
			t.Fatalf("subscriber saw pot %d, want 100", st.Round.PotMinor)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber received nothing after mutation")
	}
}
