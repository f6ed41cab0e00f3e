package postgres

import (
	"context"
	"errors"
	"fmt"

	"custodial-ledger/internal/core/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var idempotencyColumns = []string{"key", "transaction_id", "request_hash", "response_json", "created_at"}

// IdempotencyRepo reads the durable idempotency log outside any wallet lock.
// The authoritative read and the write happen inside the ledger transaction.
type IdempotencyRepo struct {
	pool Pool
}

func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Get returns nil, nil for an unknown key.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	return getIdempotency(ctx, r.pool, key)
}

func getIdempotency(ctx context.Context, q querier, key string) (*domain.IdempotencyLog, error) {
	query, args, err := psql.Select(idempotencyColumns...).
		From("idempotency_logs").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build idempotency query: %w", err)
	}

	var entry domain.IdempotencyLog
	err = q.QueryRow(ctx, query, args...).Scan(
		&entry.Key, &entry.TransactionID, &entry.RequestHash, &entry.ResponseJSON, &entry.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency log %s: %w", key, err)
	}
	return &entry, nil
}

// saveIdempotency runs inside the ledger transaction; a duplicate key there
// means the wallet lock was bypassed and aborts the whole mutation.
func saveIdempotency(ctx context.Context, q querier, entry *domain.IdempotencyLog) error {
	query, args, err := psql.Insert("idempotency_logs").
		Columns(idempotencyColumns...).
		Values(entry.Key, entry.TransactionID, entry.RequestHash, entry.ResponseJSON, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build idempotency insert: %w", err)
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert idempotency log %s: %w", entry.Key, err)
	}
	return nil
}
