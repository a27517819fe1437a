package engine

import (
	"context"
	"time"

	"goodbomb/internal/domain"
	"goodbomb/internal/logger"
	"goodbomb/internal/metrics"
	"goodbomb/internal/store"
)

// Config holds the game rule constants. Shares are in basis points; the fee
// share is whatever remains after the winner and carry shares.
type Config struct {
	RoundDuration    time.Duration
	SettleDelay      time.Duration
	PressAmountMinor int64
	WinnerShareBps   int64
	CarryShareBps    int64
	RecentPressLimit int
}

// PaymentConsumer marks a confirmed payment reference as spent by a player.
// Consume must fail for references that are unknown, issued to a different
// player, not yet confirmed, or already consumed, and must be safe to call
// from inside the store critical section.
type PaymentConsumer interface {
	Consume(reference, playerID string) (*domain.PaymentIntent, error)
}

// Recorder receives committed game events for durable storage. All methods
// are called outside the store critical section and must not block the game
// on failure.
type Recorder interface {
	RoundStarted(ctx context.Context, r domain.Round)
	PressCommitted(ctx context.Context, r domain.Round, e domain.PressEvent)
	RoundSettled(ctx context.Context, r domain.Round, s domain.Settlement)
}

type nopRecorder struct{}

func (nopRecorder) RoundStarted(context.Context, domain.Round)                      {}
func (nopRecorder) PressCommitted(context.Context, domain.Round, domain.PressEvent) {}
func (nopRecorder) RoundSettled(context.Context, domain.Round, domain.Settlement)   {}

// Engine enforces the round rules on top of the store: it validates and
// applies presses, detects expiry, computes the payout split and performs the
// carry-over reset. It is the only writer to the store.
type Engine struct {
	store    *store.RoundStore
	payments PaymentConsumer
	rec      Recorder
	cfg      Config
}

func New(s *store.RoundStore, payments PaymentConsumer, rec Recorder, cfg Config) *Engine {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Engine{store: s, payments: payments, rec: rec, cfg: cfg}
}

// Store exposes the underlying store for snapshot reads and subscriptions.
func (e *Engine) Store() *store.RoundStore { return e.store }

// Bootstrap seeds the store with the restored winners ledger and either
// adopts the restored round (if it is still active, together with its recent
// presses) or starts a fresh one.
func (e *Engine) Bootstrap(ctx context.Context, restored *domain.Round, winners []domain.WinnerRecord, presses []domain.PressEvent) store.State {
	now := time.Now()
	var started *domain.Round

	st, _ := e.store.Apply(func(st *store.State) (bool, error) {
		st.Winners = winners
		if restored != nil && restored.Status == domain.RoundActive {
			st.Round = *restored
			st.RecentPresses = presses
			return true, nil
		}
		var id, seed int64 = 1, 0
		if restored != nil {
			id = restored.ID + 1
			seed = restored.CarryMinor
		}
		r := newRound(id, seed, now, e.cfg.RoundDuration)
		st.Round = r
		started = &r
		return true, nil
	})

	if started != nil {
		e.rec.RoundStarted(ctx, *started)
	}
	logger.Info("round engine bootstrapped",
		"round_id", st.Round.ID, "pot_minor", st.Round.PotMinor, "deadline", st.Round.Deadline)
	return st
}

// TryPress validates and applies one contribution atomically. The payment
// reference is consumed and the round mutated inside a single critical
// section, so concurrent presses are totally ordered and a losing racer gets
// a clean error instead of a partial update.
func (e *Engine) TryPress(ctx context.Context, player *domain.Player, reference string) (store.State, error) {
	if !player.Verified() {
		return store.State{}, ErrNotVerified
	}

	st, err := e.store.Apply(func(st *store.State) (bool, error) {
		// The clock is read under the lock: commit order and timestamp
		// order agree, and a press can only move the deadline forward.
		now := time.Now()
		if st.Round.Status != domain.RoundActive || !now.Before(st.Round.Deadline) {
			return false, ErrNotActive
		}
		if st.Round.LastActor != nil && st.Round.LastActor.ID == player.ID {
			return false, ErrDuplicateActor
		}
		// All round-state checks passed; consuming the reference is the
		// point of no return.
		if _, err := e.payments.Consume(reference, player.ID); err != nil {
			return false, err
		}

		actor := *player
		st.Round.PotMinor += e.cfg.PressAmountMinor
		st.Round.LastActor = &actor
		st.Round.Deadline = now.Add(e.cfg.RoundDuration)
		st.AppendPress(domain.PressEvent{
			RoundID:     st.Round.ID,
			Player:      actor,
			AmountMinor: e.cfg.PressAmountMinor,
			PressedAt:   now,
		})
		return true, nil
	})
	if err != nil {
		metrics.PressesRejected.Inc()
		return store.State{}, err
	}

	metrics.PressesAccepted.Inc()
	e.rec.PressCommitted(ctx, st.Round, st.RecentPresses[0])
	logger.Info("press accepted",
		"round_id", st.Round.ID, "player", player.ID, "pot_minor", st.Round.PotMinor)
	return st, nil
}

// CheckExpiry is idempotent and safe to call from any number of pollers: the
// Active->Exploding transition is taken at most once, and settlement is
// computed exactly at that transition. Returns the current state and whether
// this call performed the settlement.
func (e *Engine) CheckExpiry(ctx context.Context, now time.Time) (store.State, bool) {
	var stl *domain.Settlement

	st, _ := e.store.Apply(func(st *store.State) (bool, error) {
		if st.Round.Status != domain.RoundActive || now.Before(st.Round.Deadline) {
			return false, nil
		}
		exploded := now
		st.Round.Status = domain.RoundExploding
		st.Round.ExplodedAt = &exploded

		s := e.settle(&st.Round)
		st.Round.CarryMinor = s.CarryMinor
		if s.Winner != nil {
			st.Winners = append([]domain.WinnerRecord{{
				RoundID:     st.Round.ID,
				Player:      *s.Winner,
				AmountMinor: s.PayoutMinor,
				WonAt:       now,
			}}, st.Winners...)
		}
		stl = &s
		return true, nil
	})

	if stl == nil {
		return st, false
	}

	metrics.RoundsSettled.Inc()
	e.rec.RoundSettled(ctx, st.Round, *stl)
	if stl.Winner != nil {
		logger.Info("round exploded",
			"round_id", stl.RoundID, "winner", stl.Winner.ID,
			"payout_minor", stl.PayoutMinor, "carry_minor", stl.CarryMinor, "fee_minor", stl.FeeMinor)
	} else {
		logger.Info("round exploded with no presses",
			"round_id", stl.RoundID, "carry_minor", stl.CarryMinor)
	}
	return st, true
}

// AdvanceToNextRound replaces an exploded round with a fresh one seeded with
// the carry, once the settlement delay has elapsed. Idempotent: callers that
// lose the race observe the already-advanced state.
func (e *Engine) AdvanceToNextRound(ctx context.Context, now time.Time) (store.State, bool) {
	var started *domain.Round

	st, _ := e.store.Apply(func(st *store.State) (bool, error) {
		if st.Round.Status != domain.RoundExploding {
			return false, nil
		}
		if st.Round.ExplodedAt == nil || now.Sub(*st.Round.ExplodedAt) < e.cfg.SettleDelay {
			return false, nil
		}
		r := newRound(st.Round.ID+1, st.Round.CarryMinor, now, e.cfg.RoundDuration)
		st.Round = r
		started = &r
		return true, nil
	})

	if started == nil {
		return st, false
	}

	e.rec.RoundStarted(ctx, *started)
	logger.Info("new round started",
		"round_id", started.ID, "seed_minor", started.PotMinor, "deadline", started.Deadline)
	return st, true
}

// Run drives expiry and round advancement from a ticker until ctx is done.
// Handlers may also call CheckExpiry lazily; both paths are serialized by the
// store, so redundant calls are harmless.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			switch e.store.Snapshot().Round.Status {
			case domain.RoundActive:
				e.CheckExpiry(ctx, now)
			case domain.RoundExploding:
				e.AdvanceToNextRound(ctx, now)
			}
		}
	}
}

// settle computes the split for the round being exploded. With no last actor
// the whole pot carries to the next round; otherwise the winner and carry
// shares are floored and the fee absorbs the remainder, so the three parts
// always sum to the pot exactly.
func (e *Engine) settle(r *domain.Round) domain.Settlement {
	s := domain.Settlement{RoundID: r.ID, PotMinor: r.PotMinor}
	if r.LastActor == nil {
		s.CarryMinor = r.PotMinor
		return s
	}
	winner := *r.LastActor
	s.Winner = &winner
	s.PayoutMinor = r.PotMinor * e.cfg.WinnerShareBps / 10000
	s.CarryMinor = r.PotMinor * e.cfg.CarryShareBps / 10000
	s.FeeMinor = r.PotMinor - s.PayoutMinor - s.CarryMinor
	return s
}

func newRound(id, seedMinor int64, now time.Time, duration time.Duration) domain.Round {
	return domain.Round{
		ID:        id,
		Status:    domain.RoundActive,
		PotMinor:  seedMinor,
		Deadline:  now.Add(duration),
		StartedAt: now,
	}
}
