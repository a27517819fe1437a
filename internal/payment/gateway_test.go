package payment

import (
	"context"
	"errors"
	"testing"

	"goodbomb/internal/domain"
	"goodbomb/internal/worldpay"
)

// fakeProvider serves canned transactions keyed by transaction id.
type fakeProvider struct {
	txs map[string]*worldpay.Transaction
	err error
}

func (f *fakeProvider) GetTransaction(_ context.Context, txID string) (*worldpay.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.txs[txID], nil
}

func TestInitiateIssuesUniqueReferences(t *testing.T) {
	g := New(nil, nil, 100, true)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		intent, err := g.Initiate(ctx, "alice")
		if err != nil {
			t.Fatalf("Initiate: %v", err)
		}
		if intent.Status != domain.PaymentStatusPending {
			t.Fatalf("status = %s, want pending", intent.Status)
		}
		if intent.AmountMinor != 100 {
			t.Fatalf("amount = %d, want 100", intent.AmountMinor)
		}
		if seen[intent.Reference] {
			t.Fatalf("duplicate reference issued: %s", intent.Reference)
		}
		seen[intent.Reference] = true
	}
}

func TestConfirmAndConsumeLifecycle(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{txs: make(map[string]*worldpay.Transaction)}
	g := New(provider, nil, 100, false)

	intent, _ := g.Initiate(ctx, "alice")
	provider.txs["tx-1"] = &worldpay.Transaction{
		TransactionID:     "tx-1",
		TransactionStatus: worldpay.TxStatusMined,
		Reference:         intent.Reference,
	}

	confirmed, err := g.Confirm(ctx, intent.Reference, "tx-1", "success")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != domain.PaymentStatusConfirmed {
		t.Fatalf("status = %s, want confirmed", confirmed.Status)
	}
	if confirmed.ConfirmedAt == nil {
		t.Fatal("ConfirmedAt not set")
	}

	spent, err := g.Consume(intent.Reference, "alice")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if !spent.Consumed {
		t.Fatal("intent not marked consumed")
	}

	if _, err := g.Consume(intent.Reference, "alice"); !errors.Is(err, ErrAlreadyConsumed) {
		t.Fatalf("second consume: expected ErrAlreadyConsumed, got %v", err)
	}
}

func TestConsumeRejectsForeignReference(t *testing.T) {
	ctx := context.Background()
	g := New(nil, nil, 100, true)

	intent, _ := g.Initiate(ctx, "alice")
	if _, err := g.Confirm(ctx, intent.Reference, "tx-1", "success"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if _, err := g.Consume(intent.Reference, "bob"); !errors.Is(err, ErrReferenceOwner) {
		t.Fatalf("expected ErrReferenceOwner, got %v", err)
	}

	// The failed attempt must not burn alice's reference
	spent, err := g.Consume(intent.Reference, "alice")
	if err != nil {
		t.Fatalf("owner consume after foreign attempt: %v", err)
	}
	if !spent.Consumed {
		t.Fatal("intent not marked consumed")
	}
}

func TestConfirmUnknownReference(t *testing.T) {
	g := New(nil, nil, 100, true)
	if _, err := g.Confirm(context.Background(), "nope", "tx-1", "success"); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestConsumeBeforeConfirm(t *testing.T) {
	g := New(nil, nil, 100, true)
	intent, _ := g.Initiate(context.Background(), "alice")

	if _, err := g.Consume(intent.Reference, "alice"); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
}

func TestConfirmFailedOutcomeIsTerminal(t *testing.T) {
	ctx := context.Background()
	g := New(nil, nil, 100, true)
	intent, _ := g.Initiate(ctx, "alice")

	failed, err := g.Confirm(ctx, intent.Reference, "tx-1", "failed")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if failed.Status != domain.PaymentStatusFailed {
		t.Fatalf("status = %s, want failed", failed.Status)
	}

	// Terminal: a late success report cannot revive the intent
	again, err := g.Confirm(ctx, intent.Reference, "tx-1", "success")
	if err != nil {
		t.Fatalf("re-confirm: %v", err)
	}
	if again.Status != domain.PaymentStatusFailed {
		t.Fatalf("status = %s, want failed after re-report", again.Status)
	}

	if _, err := g.Consume(intent.Reference, "alice"); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
}

func TestConfirmCancelledOutcome(t *testing.T) {
	ctx := context.Background()
	g := New(nil, nil, 100, true)
	intent, _ := g.Initiate(ctx, "alice")

	cancelled, err := g.Confirm(ctx, intent.Reference, "", "cancelled")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if cancelled.Status != domain.PaymentStatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
}

func TestConfirmRejectsReferenceMismatch(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{txs: make(map[string]*worldpay.Transaction)}
	g := New(provider, nil, 100, false)

	intent, _ := g.Initiate(ctx, "alice")
	provider.txs["tx-1"] = &worldpay.Transaction{
		TransactionID:     "tx-1",
		TransactionStatus: worldpay.TxStatusMined,
		Reference:         "someone-elses-reference",
	}

	out, err := g.Confirm(ctx, intent.Reference, "tx-1", "success")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if out.Status != domain.PaymentStatusFailed {
		t.Fatalf("status = %s, want failed on reference mismatch", out.Status)
	}
}

func TestConfirmRejectsFailedChainTransaction(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{txs: make(map[string]*worldpay.Transaction)}
	g := New(provider, nil, 100, false)

	intent, _ := g.Initiate(ctx, "alice")
	provider.txs["tx-1"] = &worldpay.Transaction{
		TransactionID:     "tx-1",
		TransactionStatus: worldpay.TxStatusFailed,
		Reference:         intent.Reference,
	}

	out, err := g.Confirm(ctx, intent.Reference, "tx-1", "success")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if out.Status != domain.PaymentStatusFailed {
		t.Fatalf("status = %s, want failed", out.Status)
	}
}

func TestConfirmProviderOutageKeepsIntentPending(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{err: errors.New("connection refused")}
	g := New(provider, nil, 100, false)

	intent, _ := g.Initiate(ctx, "alice")
	if _, err := g.Confirm(ctx, intent.Reference, "tx-1", "success"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	// The intent is still pending; a retry after the outage succeeds
	provider.err = nil
	provider.txs = map[string]*worldpay.Transaction{"tx-1": {
		TransactionID:     "tx-1",
		TransactionStatus: worldpay.TxStatusMined,
		Reference:         intent.Reference,
	}}
	out, err := g.Confirm(ctx, intent.Reference, "tx-1", "success")
	if err != nil {
		t.Fatalf("retry Confirm: %v", err)
	}
	if out.Status != domain.PaymentStatusConfirmed {
		t.Fatalf("status = %s, want confirmed", out.Status)
	}
}

func TestDevModeSkipsProviderCheck(t *testing.T) {
	ctx := context.Background()
	g := New(nil, nil, 100, true)

	intent, _ := g.Initiate(ctx, "alice")
	out, err := g.Confirm(ctx, intent.Reference, "tx-dev", "success")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if out.Status != domain.PaymentStatusConfirmed {
		t.Fatalf("status = %s, want confirmed", out.Status)
	}
}
