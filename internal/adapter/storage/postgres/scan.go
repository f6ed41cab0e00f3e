package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"custodial-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Numerics travel as text so that no precision is lost in either direction.
const walletColumns = `id, user_id, type, address, balance::text, initial_balance::text,
	currency, metadata, created_at, updated_at`

var transactionColumns = []string{
	"id", "wallet_id", "seq", "type", "direction", "amount::text",
	"counterparty", "status", "hash", "idempotency_key", "created_at", "updated_at",
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w                    domain.Wallet
		walletType           string
		balance, initBalance string
		metadata             []byte
	)
	err := row.Scan(
		&w.ID, &w.UserID, &walletType, &w.Address, &balance, &initBalance,
		&w.Currency, &metadata, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}

	w.Type = domain.WalletType(walletType)
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse wallet balance: %w", err)
	}
	if w.InitialBalance, err = decimal.NewFromString(initBalance); err != nil {
		return nil, fmt.Errorf("parse wallet initial balance: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &w.Metadata); err != nil {
			return nil, fmt.Errorf("decode wallet metadata: %w", err)
		}
	}
	return &w, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                   domain.Transaction
		txType, dir, status string
		amount              string
	)
	err := row.Scan(
		&t.ID, &t.WalletID, &t.Seq, &txType, &dir, &amount,
		&t.Counterparty, &status, &t.Hash, &t.IdempotencyKey, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	t.Type = domain.TransactionType(txType)
	t.Direction = domain.Direction(dir)
	t.Status = domain.TransactionStatus(status)
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse transaction amount: %w", err)
	}
	return &t, nil
}

// encodeMetadata returns nil for empty metadata so the column stays NULL.
func encodeMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode wallet metadata: %w", err)
	}
	return b, nil
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
