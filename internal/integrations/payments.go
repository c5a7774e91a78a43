package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrPaymentNotFound is returned when the provider does not know the reference
var ErrPaymentNotFound = errors.New("payment reference not found")

// Verification is the provider's view of a transaction
type Verification struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"` // "success", "failed", "abandoned", ...
	AmountCents int64  `json:"amount"` // Minor units
	Currency    string `json:"currency"`
}

// Succeeded reports whether the provider settled the transaction
func (v *Verification) Succeeded() bool { return v.Status == "success" }

// PaymentVerifier calls a Paystack-compatible transaction verification API
type PaymentVerifier struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewPaymentVerifier builds a PaymentVerifier; client may be nil
func NewPaymentVerifier(baseURL, secretKey string, client *http.Client) *PaymentVerifier {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &PaymentVerifier{baseURL: strings.TrimRight(baseURL, "/"), secretKey: secretKey, client: client}
}

type verifyEnvelope struct {
	Status  bool         `json:"status"`
	Message string       `json:"message"`
	Data    Verification `json:"data"`
}

// Verify fetches the status of a provider transaction reference
func (p *PaymentVerifier) Verify(ctx context.Context, reference string) (*Verification, error) {
	endpoint := p.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPaymentNotFound
	}

	var env verifyEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode verify response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !env.Status {
		return nil, fmt.Errorf("verify %s: %s", reference, env.Message)
	}
	return &env.Data, nil
}
