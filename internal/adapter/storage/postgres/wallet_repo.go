package postgres

import (
	"context"
	"fmt"
	"strings"

	"custodial-ledger/internal/core/domain"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// CreateIfAbsent inserts the wallet unless user_id already has one, then
// reads back whichever row won.
func (r *WalletRepo) CreateIfAbsent(ctx context.Context, w *domain.Wallet) (*domain.Wallet, bool, error) {
	metadata, err := encodeMetadata(w.Metadata)
	if err != nil {
		return nil, false, err
	}

	query := `INSERT INTO wallets (id, user_id, type, address, balance, initial_balance, currency, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		w.ID, w.UserID, string(w.Type), strings.ToLower(w.Address),
		w.Balance.String(), w.InitialBalance.String(), w.Currency, metadata,
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert wallet: %w", err)
	}

	stored, err := r.GetByUserID(ctx, w.UserID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("wallet for user %s missing after insert", w.UserID)
	}
	return stored, tag.RowsAffected() == 1, nil
}

// GetByID fetches a wallet by id without locking it.
func (r *WalletRepo) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, id))
}

// GetByUserID fetches the wallet owned by userID.
func (r *WalletRepo) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, userID))
}

// GetByAddress fetches a wallet by its deposit address. Addresses are stored lowercase.
func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE address = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, strings.ToLower(address)))
}
