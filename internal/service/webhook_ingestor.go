package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// webhookIngestor implements ports.WebhookIngestor.
type webhookIngestor struct {
	provider  ports.SettlementProvider
	txRepo    ports.TransactionRepository
	eventRepo ports.WebhookEventRepository
	log       zerolog.Logger
}

// NewWebhookIngestor creates a new settlement webhook ingestor.
func NewWebhookIngestor(
	provider ports.SettlementProvider,
	txRepo ports.TransactionRepository,
	eventRepo ports.WebhookEventRepository,
	log zerolog.Logger,
) ports.WebhookIngestor {
	return &webhookIngestor{
		provider:  provider,
		txRepo:    txRepo,
		eventRepo: eventRepo,
		log:       log,
	}
}

// Verify checks the provider signature over the raw payload.
func (s *webhookIngestor) Verify(payload []byte, signature string) bool {
	return s.provider.VerifySignature(payload, signature)
}

// HandleWebhook verifies then handles a notification.
func (s *webhookIngestor) HandleWebhook(ctx context.Context, payload []byte, signature string) (*ports.WebhookResult, error) {
	if !s.Verify(payload, signature) {
		s.log.Warn().Str("provider", s.provider.Name()).Msg("webhook: signature rejected")
		return nil, apperror.ErrSignatureInvalid()
	}
	return s.Handle(ctx, payload)
}

// Handle applies a settlement notification. Status changes are conditional
// pending -> confirmed|failed writes, so redelivery and concurrent delivery of
// one event change the journal at most once. Balances are never touched.
func (s *webhookIngestor) Handle(ctx context.Context, payload []byte) (*ports.WebhookResult, error) {
	var p domain.WebhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, apperror.Validation("webhook payload is not valid JSON")
	}
	p.ID = strings.TrimSpace(p.ID)
	p.Data.ID = strings.TrimSpace(p.Data.ID)
	if p.ID == "" || p.Data.ID == "" {
		return nil, apperror.Validation("webhook payload requires id and data.id")
	}

	seen, err := s.eventRepo.Exists(ctx, p.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check webhook event: %w", err))
	}
	if seen {
		s.log.Debug().Str("event_id", p.ID).Msg("webhook: duplicate event ignored")
		return &ports.WebhookResult{Processed: true, Duplicate: true, TransactionID: p.Data.ID}, nil
	}

	target, ok := domain.ParseSettlementStatus(p.Data.Status)
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unknown settlement status %q", p.Data.Status))
	}
	eventType, ok := domain.ParseEventType(p.Type)
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unknown webhook event type %q", p.Type))
	}

	txn, err := s.txRepo.GetByID(ctx, p.Data.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		s.log.Warn().Str("event_id", p.ID).Str("tx_id", p.Data.ID).Msg("webhook: unknown transaction")
		return &ports.WebhookResult{Processed: false, TransactionID: p.Data.ID}, nil
	}
	if eventType != "" && eventType != txn.Type {
		s.log.Warn().
			Str("event_id", p.ID).
			Str("event_type", p.Type).
			Str("tx_type", string(txn.Type)).
			Msg("webhook: event type does not match transaction")
		return &ports.WebhookResult{Processed: false, TransactionID: txn.ID}, nil
	}

	applied := false
	if txn.CanTransitionTo(target) {
		applied, err = s.txRepo.UpdateStatus(ctx, txn.ID, domain.TransactionStatusPending, target)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update transaction status: %w", err))
		}
	}

	if _, err := s.eventRepo.Record(ctx, &domain.WebhookEvent{
		ID:         p.ID,
		Type:       p.Type,
		ResourceID: txn.ID,
		Status:     p.Data.Status,
		Applied:    applied,
		ReceivedAt: time.Now().UTC(),
	}); err != nil {
		// The status write above is idempotent, so a redelivery after this
		// failure converges to the same state.
		return nil, apperror.InternalError(fmt.Errorf("record webhook event: %w", err))
	}

	s.log.Info().
		Str("event_id", p.ID).
		Str("tx_id", txn.ID).
		Str("status", string(target)).
		Bool("applied", applied).
		Msg("webhook processed")

	return &ports.WebhookResult{Processed: true, Applied: applied, TransactionID: txn.ID}, nil
}
