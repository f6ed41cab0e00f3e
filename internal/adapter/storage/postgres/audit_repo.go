package postgres

import (
	"context"
	"fmt"

	"custodial-ledger/internal/core/domain"
)

// AuditRepo appends to audit_logs. Rows are never updated or read back here.
type AuditRepo struct {
	pool Pool
}

func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	query, args, err := psql.Insert("audit_logs").
		Columns("id", "user_id", "action", "resource_type", "resource_id", "details", "ip_address", "created_at").
		Values(
			entry.ID, entry.UserID, string(entry.Action), string(entry.ResourceType), entry.ResourceID,
			nullableJSON(entry.Details), entry.IPAddress, entry.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit log %s: %w", entry.Action, err)
	}
	return nil
}

// nullableJSON stores empty details as SQL NULL rather than an empty jsonb.
func nullableJSON(raw []byte) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}
