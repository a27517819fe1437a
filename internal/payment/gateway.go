package payment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"goodbomb/internal/domain"
	"goodbomb/internal/logger"
	"goodbomb/internal/metrics"
	"goodbomb/internal/worldpay"

	"github.com/google/uuid"
)

var (
	// ErrInvalidReference is returned for references this gateway never issued
	ErrInvalidReference = errors.New("unknown payment reference")

	// ErrNotConfirmed is returned when a reference is consumed before the
	// provider confirmed it, or after it failed/was cancelled
	ErrNotConfirmed = errors.New("payment not confirmed")

	// ErrAlreadyConsumed is returned when a confirmed reference is spent twice
	ErrAlreadyConsumed = errors.New("payment reference already consumed")

	// ErrReferenceOwner is returned when a player tries to spend a
	// reference issued to someone else
	ErrReferenceOwner = errors.New("payment reference owned by another player")

	// ErrProviderUnavailable is returned when the provider call failed or
	// timed out; the caller should initiate a fresh payment
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// Provider looks up a payment transaction at the external provider. A nil
// transaction with nil error means the provider does not know the id.
type Provider interface {
	GetTransaction(ctx context.Context, txID string) (*worldpay.Transaction, error)
}

// IntentWriter persists intent transitions. May be nil; persistence is a
// ledger behind the in-memory authority, never a gate on it.
type IntentWriter interface {
	Create(ctx context.Context, p *domain.PaymentIntent) error
	UpdateStatus(ctx context.Context, reference string, status domain.PaymentStatus, txID string) error
	MarkConsumed(ctx context.Context, reference string) error
}

// Gateway owns the PaymentIntent lifecycle: it issues unique references,
// validates provider outcomes, and hands confirmed references to the engine
// to be consumed exactly once.
type Gateway struct {
	mu      sync.Mutex
	intents map[string]*domain.PaymentIntent

	provider       Provider
	repo           IntentWriter
	amountMinor    int64
	skipChainCheck bool
}

// New creates a gateway. provider may be nil only when skipChainCheck is set
// (dev mode); repo may always be nil.
func New(provider Provider, repo IntentWriter, amountMinor int64, skipChainCheck bool) *Gateway {
	return &Gateway{
		intents:        make(map[string]*domain.PaymentIntent),
		provider:       provider,
		repo:           repo,
		amountMinor:    amountMinor,
		skipChainCheck: skipChainCheck,
	}
}

// Initiate creates a fresh intent with a unique, never-reused reference.
func (g *Gateway) Initiate(ctx context.Context, playerID string) (*domain.PaymentIntent, error) {
	intent := &domain.PaymentIntent{
		Reference:   strings.ReplaceAll(uuid.New().String(), "-", ""),
		PlayerID:    playerID,
		AmountMinor: g.amountMinor,
		Status:      domain.PaymentStatusPending,
		CreatedAt:   time.Now(),
	}

	g.mu.Lock()
	g.intents[intent.Reference] = intent
	g.mu.Unlock()

	if g.repo != nil {
		if err := g.repo.Create(ctx, intent); err != nil {
			logger.Warn("failed to persist payment intent", "reference", intent.Reference, "error", err)
		}
	}

	return copyIntent(intent), nil
}

// Confirm applies the provider-reported outcome to an issued reference.
// Success outcomes are verified against the provider before the intent is
// marked Confirmed; failed/cancelled outcomes move the intent to a terminal
// state and the caller must initiate a new reference.
func (g *Gateway) Confirm(ctx context.Context, reference, txID, outcome string) (*domain.PaymentIntent, error) {
	g.mu.Lock()
	intent, ok := g.intents[reference]
	if !ok {
		g.mu.Unlock()
		return nil, ErrInvalidReference
	}
	if intent.Status.Terminal() {
		// Re-reported outcome: idempotent for the recorded state
		out := copyIntent(intent)
		g.mu.Unlock()
		return out, nil
	}
	g.mu.Unlock()

	switch outcome {
	case "success":
		// verified below
	case "cancelled":
		return g.transition(ctx, reference, domain.PaymentStatusCancelled, txID)
	default:
		return g.transition(ctx, reference, domain.PaymentStatusFailed, txID)
	}

	if !g.skipChainCheck {
		tx, err := g.provider.GetTransaction(ctx, txID)
		if err != nil {
			return nil, ErrProviderUnavailable
		}
		if tx == nil || tx.Reference != reference || tx.Failed() {
			return g.transition(ctx, reference, domain.PaymentStatusFailed, txID)
		}
	}

	metrics.PaymentsConfirmed.Inc()
	return g.transition(ctx, reference, domain.PaymentStatusConfirmed, txID)
}

// Consume marks a confirmed reference as spent by the player it was issued
// to. Exactly-once: a second call for the same reference fails with
// ErrAlreadyConsumed regardless of timing.
func (g *Gateway) Consume(reference, playerID string) (*domain.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[reference]
	if !ok {
		return nil, ErrInvalidReference
	}
	if intent.PlayerID != playerID {
		return nil, ErrReferenceOwner
	}
	if intent.Consumed {
		return nil, ErrAlreadyConsumed
	}
	if intent.Status != domain.PaymentStatusConfirmed {
		return nil, ErrNotConfirmed
	}
	intent.Consumed = true

	if g.repo != nil {
		// Best-effort; the in-memory intent is authoritative
		go func(ref string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := g.repo.MarkConsumed(ctx, ref); err != nil {
				logger.Warn("failed to persist consumed payment", "reference", ref, "error", err)
			}
		}(reference)
	}

	return copyIntent(intent), nil
}

// Intent returns the current state of an issued reference.
func (g *Gateway) Intent(reference string) (*domain.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[reference]
	if !ok {
		return nil, ErrInvalidReference
	}
	return copyIntent(intent), nil
}

func (g *Gateway) transition(ctx context.Context, reference string, status domain.PaymentStatus, txID string) (*domain.PaymentIntent, error) {
	g.mu.Lock()
	intent, ok := g.intents[reference]
	if !ok {
		g.mu.Unlock()
		return nil, ErrInvalidReference
	}
	if !intent.Status.Terminal() {
		intent.Status = status
		intent.TxID = txID
		if status == domain.PaymentStatusConfirmed {
			now := time.Now()
			intent.ConfirmedAt = &now
		}
	}
	out := copyIntent(intent)
	g.mu.Unlock()

	if g.repo != nil {
		if err := g.repo.UpdateStatus(ctx, reference, out.Status, txID); err != nil {
			logger.Warn("failed to persist payment status", "reference", reference, "error", err)
		}
	}

	logger.Info("payment intent transitioned", "reference", reference, "status", out.Status)
	return out, nil
}

func copyIntent(p *domain.PaymentIntent) *domain.PaymentIntent {
	out := *p
	return &out
}
