package postgres

import (
	"context"
	"fmt"

	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Transactor implements ports.WalletTransactor with SELECT ... FOR UPDATE
// row locks held for the lifetime of one database transaction.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a new Transactor wrapping the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// WithWalletLock locks the wallet rows in id order, runs fn and commits
// only if fn returns nil.
func (t *Transactor) WithWalletLock(ctx context.Context, walletIDs []string, fn func(ctx context.Context, tx ports.LedgerTx) error) (err error) {
	ids := sortedIDs(walletIDs)

	dbTx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = dbTx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	wallets, err := lockWallets(ctx, dbTx, ids)
	if err != nil {
		return err
	}

	if err = fn(ctx, &ledgerTx{tx: dbTx, wallets: wallets}); err != nil {
		return err
	}

	if err = dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func lockWallets(ctx context.Context, tx pgx.Tx, ids []string) (map[string]*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("lock wallets: %w", err)
	}
	defer rows.Close()

	wallets := make(map[string]*domain.Wallet, len(ids))
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets[w.ID] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locked wallets: %w", err)
	}
	return wallets, nil
}

// ledgerTx implements ports.LedgerTx on an open pgx.Tx.
type ledgerTx struct {
	tx      pgx.Tx
	wallets map[string]*domain.Wallet
}

func (l *ledgerTx) Wallet(id string) *domain.Wallet {
	return l.wallets[id].Clone()
}

func (l *ledgerTx) SetBalance(ctx context.Context, walletID string, balance decimal.Decimal) error {
	w, ok := l.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet %s is not locked", walletID)
	}

	now := utcNow()
	_, err := l.tx.Exec(ctx,
		`UPDATE wallets SET balance = $1::numeric, updated_at = $2 WHERE id = $3`,
		balance.String(), now, walletID,
	)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	w.Balance = balance
	w.UpdatedAt = now
	return nil
}

func (l *ledgerTx) AppendTransaction(ctx context.Context, t *domain.Transaction) error {
	if _, ok := l.wallets[t.WalletID]; !ok {
		return fmt.Errorf("wallet %s is not locked", t.WalletID)
	}

	query := `INSERT INTO transactions (id, wallet_id, type, direction, amount, counterparty, status, hash, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11)
		RETURNING seq`

	err := l.tx.QueryRow(ctx, query,
		t.ID, t.WalletID, string(t.Type), string(t.Direction), t.Amount.String(),
		t.Counterparty, string(t.Status), t.Hash, t.IdempotencyKey, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.Seq)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (l *ledgerTx) GetIdempotency(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	return getIdempotency(ctx, l.tx, key)
}

func (l *ledgerTx) SaveIdempotency(ctx context.Context, log *domain.IdempotencyLog) error {
	return saveIdempotency(ctx, l.tx, log)
}
