package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// MockSettlementProvider settles every transaction immediately and trusts every
// webhook. Configuration refuses it in release mode.
type MockSettlementProvider struct{}

// NewMockSettlementProvider creates the mock provider.
func NewMockSettlementProvider() *MockSettlementProvider {
	return &MockSettlementProvider{}
}

func (p *MockSettlementProvider) Name() string { return "mock" }

func (p *MockSettlementProvider) InitialStatus() domain.TransactionStatus {
	return domain.TransactionStatusConfirmed
}

// NewAddress returns a random address; userID only seeds the hash.
func (p *MockSettlementProvider) NewAddress(_ context.Context, userID string) (string, error) {
	return addressFromSeed("mock", userID, uuid.NewString()), nil
}

func (p *MockSettlementProvider) VerifySignature(_ []byte, _ string) bool { return true }

func (p *MockSettlementProvider) Submit(_ context.Context, _ *domain.Transaction) error { return nil }

// RealSettlementProvider journals transactions as pending, forwards them to the
// provider endpoint and verifies HMAC-signed settlement webhooks.
type RealSettlementProvider struct {
	secret         string
	baseURL        string
	sigSvc         ports.SignatureService
	httpClient     HTTPClient
	retryIntervals []time.Duration
	log            zerolog.Logger
}

// NewRealSettlementProvider creates a provider. An empty baseURL disables
// submission; transactions then wait for webhooks only.
func NewRealSettlementProvider(
	secret string,
	baseURL string,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	log zerolog.Logger,
) *RealSettlementProvider {
	return &RealSettlementProvider{
		secret:         secret,
		baseURL:        strings.TrimRight(baseURL, "/"),
		sigSvc:         sigSvc,
		httpClient:     httpClient,
		retryIntervals: []time.Duration{500 * time.Millisecond, 2 * time.Second},
		log:            log,
	}
}

func (p *RealSettlementProvider) Name() string { return "real" }

func (p *RealSettlementProvider) InitialStatus() domain.TransactionStatus {
	return domain.TransactionStatusPending
}

// NewAddress derives a stable deposit address for userID.
func (p *RealSettlementProvider) NewAddress(_ context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("derive address: empty user id")
	}
	return addressFromSeed(p.secret, userID), nil
}

func (p *RealSettlementProvider) VerifySignature(payload []byte, signature string) bool {
	return p.sigSvc.Verify(p.secret, payload, signature)
}

type settlementInstruction struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	WalletID     string `json:"wallet_id"`
	Amount       string `json:"amount"`
	Counterparty string `json:"counterparty"`
	Hash         string `json:"hash"`
}

// Submit posts the transaction to the provider, retrying transport errors and 5xx.
func (p *RealSettlementProvider) Submit(ctx context.Context, t *domain.Transaction) error {
	if p.baseURL == "" {
		p.log.Debug().Str("tx_id", t.ID).Msg("settlement: no provider url configured, awaiting webhook")
		return nil
	}

	body, err := json.Marshal(settlementInstruction{
		ID:           t.ID,
		Type:         string(t.Type),
		WalletID:     t.WalletID,
		Amount:       t.Amount.StringFixed(2),
		Counterparty: t.Counterparty,
		Hash:         t.Hash,
	})
	if err != nil {
		return fmt.Errorf("marshal settlement instruction: %w", err)
	}
	signature := p.sigSvc.Sign(p.secret, body)

	var lastErr error
	for attempt := 0; attempt <= len(p.retryIntervals); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.retryIntervals[attempt-1]):
			}
		}

		retry, err := p.post(ctx, body, signature)
		if err == nil {
			p.log.Info().Str("tx_id", t.ID).Int("attempt", attempt+1).Msg("settlement: submitted")
			return nil
		}
		lastErr = err
		p.log.Warn().Err(err).Str("tx_id", t.ID).Int("attempt", attempt+1).Msg("settlement: submission failed")
		if !retry {
			break
		}
	}
	return fmt.Errorf("submit %s: %w", t.ID, lastErr)
}

func (p *RealSettlementProvider) post(ctx context.Context, body []byte, signature string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/settlements", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return true, err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("provider returned %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("provider rejected instruction: %d", resp.StatusCode)
	}
}
