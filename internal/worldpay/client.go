package worldpay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Developer Portal payments API. The game never credits
// a press on the provider's say-so alone; it fetches the transaction and
// checks the reference and status itself.
type Client struct {
	baseURL    string
	appID      string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new payments API client
func NewClient(appID, apiKey string) *Client {
	return &Client{
		baseURL: DevPortalAPI,
		appID:   appID,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server
func NewClientWithBaseURL(baseURL, appID, apiKey string) *Client {
	c := NewClient(appID, apiKey)
	c.baseURL = baseURL
	return c
}

// Transaction represents a mini-app payment transaction
type Transaction struct {
	TransactionID     string `json:"transactionId"`
	TransactionHash   string `json:"transactionHash"`
	TransactionStatus string `json:"transactionStatus"`
	Reference         string `json:"reference"`
	From              string `json:"fromWalletAddress"`
	Recipient         string `json:"recipientAddress"`
	InputToken        string `json:"inputToken"`
	InputTokenAmount  string `json:"inputTokenAmount"`
	Network           string `json:"network"`
	UpdatedAt         string `json:"updatedAt"`
}

// Failed reports whether the chain rejected the transaction
func (t *Transaction) Failed() bool {
	return t.TransactionStatus == TxStatusFailed
}

// GetTransaction retrieves a payment transaction by provider transaction id
func (c *Client) GetTransaction(ctx context.Context, txID string) (*Transaction, error) {
	url := fmt.Sprintf("%s/transaction/%s?app_id=%s&type=payment", c.baseURL, txID, c.appID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	var tx Transaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, err
	}

	return &tx, nil
}

// WaitForConfirmation polls until the transaction leaves the pending state
// or the timeout elapses
func (c *Client) WaitForConfirmation(ctx context.Context, txID string, timeout time.Duration) (*Transaction, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		tx, err := c.GetTransaction(ctx, txID)
		if err != nil {
			return nil, err
		}
		if tx != nil && tx.TransactionStatus != TxStatusPending {
			return tx, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(ConfirmPollInterval):
		}
	}

	return nil, fmt.Errorf("transaction not confirmed within timeout")
}
