package postgres

import (
	"context"
	"fmt"

	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// GetByID fetches a journal entry by id.
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query, args, err := psql.Select(transactionColumns...).
		From("transactions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build transaction query: %w", err)
	}
	return scanTransaction(r.pool.QueryRow(ctx, query, args...))
}

// List returns a page of one wallet's journal, newest first. The page is
// pinned to params.AsOf, or to the current head when AsOf is zero, so that
// appends between page requests do not shift offsets.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) (*ports.TransactionPage, error) {
	asOf := params.AsOf
	if asOf == 0 {
		if err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM transactions`).Scan(&asOf); err != nil {
			return nil, fmt.Errorf("read journal head: %w", err)
		}
	}

	filter := sq.And{
		sq.Eq{"wallet_id": params.WalletID},
		sq.LtOrEq{"seq": asOf},
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("transactions").Where(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}
	page := &ports.TransactionPage{AsOf: asOf, Transactions: []domain.Transaction{}}
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}

	builder := psql.Select(transactionColumns...).
		From("transactions").
		Where(filter).
		OrderBy("created_at DESC", "seq DESC").
		Offset(uint64(params.Offset))
	if params.Limit > 0 {
		builder = builder.Limit(uint64(params.Limit))
	}
	dataQuery, dataArgs, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, dataQuery, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		page.Transactions = append(page.Transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return page, nil
}

// UpdateStatus moves a transaction from one status to another. It reports
// false when the row does not exist or is no longer in the from status.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, id string, from, to domain.TransactionStatus) (bool, error) {
	query := `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	tag, err := r.pool.Exec(ctx, query, string(to), utcNow(), id, string(from))
	if err != nil {
		return false, fmt.Errorf("update transaction status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetStats sums a wallet's journal per status and direction.
func (r *TransactionRepo) GetStats(ctx context.Context, walletID string) (*ports.TransactionStats, error) {
	query := `SELECT
		COUNT(*),
		COALESCE(SUM(amount) FILTER (WHERE status = 'confirmed' AND direction = 'credit'), 0)::text,
		COALESCE(SUM(amount) FILTER (WHERE status = 'confirmed' AND direction = 'debit'), 0)::text,
		COALESCE(SUM(amount) FILTER (WHERE status = 'pending' AND direction = 'credit'), 0)::text,
		COALESCE(SUM(amount) FILTER (WHERE status = 'pending' AND direction = 'debit'), 0)::text,
		COALESCE(SUM(amount) FILTER (WHERE status = 'failed' AND direction = 'credit'), 0)::text,
		COALESCE(SUM(amount) FILTER (WHERE status = 'failed' AND direction = 'debit'), 0)::text
		FROM transactions WHERE wallet_id = $1`

	stats := &ports.TransactionStats{}
	var sums [6]string
	err := r.pool.QueryRow(ctx, query, walletID).Scan(
		&stats.Count, &sums[0], &sums[1], &sums[2], &sums[3], &sums[4], &sums[5],
	)
	if err != nil {
		return nil, fmt.Errorf("get transaction stats: %w", err)
	}

	targets := []*decimal.Decimal{
		&stats.ConfirmedCredits, &stats.ConfirmedDebits,
		&stats.PendingCredits, &stats.PendingDebits,
		&stats.FailedCredits, &stats.FailedDebits,
	}
	for i, raw := range sums {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse transaction stats: %w", err)
		}
		*targets[i] = d
	}
	return stats, nil
}
