package postgres

import (
	"context"
	"fmt"

	"custodial-ledger/internal/core/domain"
)

// WebhookEventRepo implements ports.WebhookEventRepository.
type WebhookEventRepo struct {
	pool Pool
}

// NewWebhookEventRepo creates a new WebhookEventRepo.
func NewWebhookEventRepo(pool Pool) *WebhookEventRepo {
	return &WebhookEventRepo{pool: pool}
}

// Exists reports whether the event id has been recorded.
func (r *WebhookEventRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM webhook_events WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check webhook event: %w", err)
	}
	return exists, nil
}

// Record stores the event. A concurrent delivery of the same id loses the
// insert and gets false.
func (r *WebhookEventRepo) Record(ctx context.Context, e *domain.WebhookEvent) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO webhook_events (id, type, resource_id, status, applied, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Type, e.ResourceID, e.Status, e.Applied, e.ReceivedAt,
	)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
