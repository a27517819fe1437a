package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"goodbomb/internal/engine"
	"goodbomb/internal/http/middleware"
	"goodbomb/internal/payment"
	"goodbomb/internal/service"
	"goodbomb/internal/store"
	"goodbomb/internal/ws"

	"github.com/gin-gonic/gin"
)

// newTestRouter wires a dev-mode stack: no database, no provider round-trips,
// the in-memory gateway confirms without a chain check.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	service.InitJWT()
	gin.SetMode(gin.TestMode)

	gateway := payment.New(nil, nil, 100, true)
	gate := service.NewVerificationGate(nil, nil, "goodbomb-play", true)
	eng := engine.New(store.New(5), gateway, nil, engine.Config{
		RoundDuration:    240 * time.Second,
		SettleDelay:      3 * time.Second,
		PressAmountMinor: 100,
		WinnerShareBps:   8500,
		CarryShareBps:    500,
		RecentPressLimit: 5,
	})
	eng.Bootstrap(context.Background(), nil, nil, nil)

	h := NewHandler(eng, gateway, gate, ws.NewHub(RenderState))

	r := gin.New()
	r.POST("/api/verify", h.Verify)
	r.GET("/api/game/state", h.GetState)
	r.GET("/api/game/winners", h.GetWinners)
	r.POST("/api/game/press", middleware.JWT(), h.Press)
	r.POST("/api/payment/initiate", middleware.JWT(), h.InitiatePayment)
	r.POST("/api/payment/confirm", middleware.JWT(), h.ConfirmPayment)
	r.GET("/api/payment/status", middleware.JWT(), h.PaymentStatus)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func verifyPlayer(t *testing.T, r *gin.Engine, nullifier, username string) string {
	t.Helper()
	w := doJSON(t, r, "POST", "/api/verify", "", map[string]any{
		"proof":    map[string]string{"nullifier_hash": nullifier, "merkle_root": "0x1", "proof": "0x2", "verification_level": "orb"},
		"username": username,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("verify returned %d: %s", w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["token"].(string)
	if token == "" {
		t.Fatal("no token issued")
	}
	return token
}

// confirmPress buys one press for the given player, asserting the
// confirm-and-press response code, and returns the decoded response.
func confirmPress(t *testing.T, r *gin.Engine, token string, wantCode int) map[string]any {
	t.Helper()
	w := doJSON(t, r, "POST", "/api/payment/initiate", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("initiate returned %d: %s", w.Code, w.Body.String())
	}
	ref, _ := decode(t, w)["id"].(string)
	if ref == "" {
		t.Fatal("no payment reference issued")
	}

	w = doJSON(t, r, "POST", "/api/payment/confirm", token, map[string]string{
		"reference":      ref,
		"transaction_id": "tx-" + ref[:8],
		"status":         "success",
	})
	if w.Code != wantCode {
		t.Fatalf("confirm returned %d, want %d: %s", w.Code, wantCode, w.Body.String())
	}
	return decode(t, w)
}

func TestVerifyIssuesTokenAndPlayer(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/verify", "", map[string]any{
		"proof":    map[string]string{"nullifier_hash": "0xabc"},
		"username": "alice",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	player, _ := out["player"].(map[string]any)
	if player["id"] != "0xabc" || player["username"] != "alice" {
		t.Fatalf("player = %+v", player)
	}
}

func TestVerifyRejectsEmptyProof(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/verify", "", map[string]any{
		"proof": map[string]string{"nullifier_hash": ""},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
}

func TestGetStateFreshRound(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, "GET", "/api/game/state", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	out := decode(t, w)
	if out["round_id"] != float64(1) || out["status"] != "active" {
		t.Fatalf("state = %+v", out)
	}
	if out["pot_minor"] != float64(0) {
		t.Fatalf("pot = %v, want 0", out["pot_minor"])
	}
	if left, _ := out["time_left_seconds"].(float64); left <= 0 || left > 240 {
		t.Fatalf("time_left_seconds = %v", left)
	}
}

func TestPressRequiresToken(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/game/press", "", map[string]string{"reference": "x"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
	w = doJSON(t, r, "POST", "/api/game/press", "garbage-token", map[string]string{"reference": "x"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
}

func TestPaymentConfirmDrivesPress(t *testing.T) {
	r := newTestRouter(t)
	alice := verifyPlayer(t, r, "0xaaa", "alice")
	bob := verifyPlayer(t, r, "0xbbb", "bob")

	out := confirmPress(t, r, alice, http.StatusOK)
	state, _ := out["state"].(map[string]any)
	if state["pot_minor"] != float64(100) {
		t.Fatalf("pot after first press = %v", state["pot_minor"])
	}
	actor, _ := state["last_actor"].(map[string]any)
	if actor["username"] != "alice" {
		t.Fatalf("last actor = %+v", actor)
	}

	// alice is already the last presser
	confirmPress(t, r, alice, http.StatusConflict)

	out = confirmPress(t, r, bob, http.StatusOK)
	state, _ = out["state"].(map[string]any)
	if state["pot_minor"] != float64(200) {
		t.Fatalf("pot after second press = %v", state["pot_minor"])
	}
}

func TestConfirmForeignReferenceRejected(t *testing.T) {
	r := newTestRouter(t)
	alice := verifyPlayer(t, r, "0xaaa", "alice")
	bob := verifyPlayer(t, r, "0xbbb", "bob")

	w := doJSON(t, r, "POST", "/api/payment/initiate", alice, nil)
	ref, _ := decode(t, w)["id"].(string)

	// bob replays alice's reference through confirm-and-press
	w = doJSON(t, r, "POST", "/api/payment/confirm", bob, map[string]string{
		"reference":      ref,
		"transaction_id": "tx-1",
		"status":         "success",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status %d, want 403: %s", w.Code, w.Body.String())
	}

	// alice can still spend her reference
	w = doJSON(t, r, "POST", "/api/game/press", alice, map[string]string{"reference": ref})
	if w.Code != http.StatusOK {
		t.Fatalf("owner press returned %d: %s", w.Code, w.Body.String())
	}
}

func TestPaymentStatusOwnerOnly(t *testing.T) {
	r := newTestRouter(t)
	alice := verifyPlayer(t, r, "0xaaa", "alice")
	bob := verifyPlayer(t, r, "0xbbb", "bob")

	w := doJSON(t, r, "POST", "/api/payment/initiate", alice, nil)
	ref, _ := decode(t, w)["id"].(string)

	w = doJSON(t, r, "GET", "/api/payment/status?reference="+ref, alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("owner status returned %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	if out["status"] != "pending" || out["consumed"] != false {
		t.Fatalf("status payload = %+v", out)
	}
	if out["amount_minor"] != float64(100) {
		t.Fatalf("amount_minor = %v, want 100", out["amount_minor"])
	}

	// Another player's reference looks the same as an unknown one
	w = doJSON(t, r, "GET", "/api/payment/status?reference="+ref, bob, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign status returned %d, want 404", w.Code)
	}
	w = doJSON(t, r, "GET", "/api/payment/status?reference=never-issued", alice, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown status returned %d, want 404", w.Code)
	}
	w = doJSON(t, r, "GET", "/api/payment/status?reference="+ref, "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status returned %d, want 401", w.Code)
	}
}

func TestConfirmUnknownReference(t *testing.T) {
	r := newTestRouter(t)
	alice := verifyPlayer(t, r, "0xaaa", "alice")

	w := doJSON(t, r, "POST", "/api/payment/confirm", alice, map[string]string{
		"reference": "never-issued",
		"status":    "success",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
}

func TestPressWithUnconfirmedReference(t *testing.T) {
	r := newTestRouter(t)
	alice := verifyPlayer(t, r, "0xaaa", "alice")

	w := doJSON(t, r, "POST", "/api/payment/initiate", alice, nil)
	ref, _ := decode(t, w)["id"].(string)

	w = doJSON(t, r, "POST", "/api/game/press", alice, map[string]string{"reference": ref})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status %d, want 402: %s", w.Code, w.Body.String())
	}
}

func TestConfirmCancelledPayment(t *testing.T) {
	r := newTestRouter(t)
	alice := verifyPlayer(t, r, "0xaaa", "alice")

	w := doJSON(t, r, "POST", "/api/payment/initiate", alice, nil)
	ref, _ := decode(t, w)["id"].(string)

	w = doJSON(t, r, "POST", "/api/payment/confirm", alice, map[string]string{
		"reference": ref,
		"status":    "cancelled",
	})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status %d, want 402: %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["status"]; got != "cancelled" {
		t.Fatalf("reported status = %v", got)
	}
}

func TestWinnersEmptyOnFreshInstance(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, "GET", "/api/game/winners", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	winners, ok := decode(t, w)["winners"].([]any)
	if !ok || len(winners) != 0 {
		t.Fatalf("winners = %v", winners)
	}
}
