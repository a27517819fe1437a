package worldid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DevPortalAPI is the cloud verification endpoint base URL
	DevPortalAPI = "https://developer.worldcoin.org"
)

// Client verifies zero-knowledge identity proofs against the cloud
// verification API. The proof itself is opaque to the game; only the
// provider's verdict matters.
type Client struct {
	baseURL    string
	appID      string
	httpClient *http.Client
}

// NewClient creates a new identity verification client
func NewClient(appID string) *Client {
	return &Client{
		baseURL: DevPortalAPI,
		appID:   appID,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server
func NewClientWithBaseURL(baseURL, appID string) *Client {
	c := NewClient(appID)
	c.baseURL = baseURL
	return c
}

// Proof is the opaque proof payload forwarded from the mini-app
type Proof struct {
	MerkleRoot        string `json:"merkle_root"`
	NullifierHash     string `json:"nullifier_hash"`
	Proof             string `json:"proof"`
	VerificationLevel string `json:"verification_level"`
}

// VerifyRequest is the provider request body
type VerifyRequest struct {
	Proof
	Action     string `json:"action"`
	SignalHash string `json:"signal_hash,omitempty"`
}

// VerifyResponse is the provider verdict. Code and Detail are set on
// rejection (e.g. invalid_proof, max_verifications_reached).
type VerifyResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Verify forwards the proof for the given action and signal to the provider.
// A non-nil error means the provider was unreachable; a response with
// Success=false means the proof was rejected.
func (c *Client) Verify(ctx context.Context, proof Proof, action, signalHash string) (*VerifyResponse, error) {
	url := fmt.Sprintf("%s/api/v2/verify/%s", c.baseURL, c.appID)

	body, err := json.Marshal(VerifyRequest{Proof: proof, Action: action, SignalHash: signalHash})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The provider answers 200 on success and 400 with a machine-readable
	// code on rejection; anything else is a provider-side failure.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s - %s", resp.Status, string(raw))
	}

	var out VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK && !out.Success {
		// Some responses omit the success flag on 200
		out.Success = true
	}

	return &out, nil
}
