package ports

import (
	"context"

	"custodial-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories.go -package=mocks

// WalletRepository defines non-locking persistence operations for wallets.
// Reads return (nil, nil) when nothing matches.
type WalletRepository interface {
	// CreateIfAbsent inserts wallet unless the user already owns one.
	// It returns the stored wallet and whether this call created it.
	CreateIfAbsent(ctx context.Context, wallet *domain.Wallet) (*domain.Wallet, bool, error)
	GetByID(ctx context.Context, id string) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)
}

// TransactionRepository defines journal reads and status transitions.
// Appends happen inside a LedgerTx.
type TransactionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	List(ctx context.Context, params TransactionListParams) (*TransactionPage, error)
	// UpdateStatus moves id from -> to and reports whether a row changed.
	UpdateStatus(ctx context.Context, id string, from, to domain.TransactionStatus) (bool, error)
	GetStats(ctx context.Context, walletID string) (*TransactionStats, error)
}

// TransactionListParams holds filter + pagination for a wallet's journal.
type TransactionListParams struct {
	WalletID string
	Limit    int
	Offset   int
	AsOf     int64 // only entries with seq <= AsOf; 0 means the current head
}

// TransactionPage is one page of journal entries, newest first.
type TransactionPage struct {
	Transactions []domain.Transaction
	Total        int64
	AsOf         int64
}

// TransactionStats sums journal amounts per status and direction.
type TransactionStats struct {
	Count            int64
	ConfirmedCredits decimal.Decimal
	ConfirmedDebits  decimal.Decimal
	PendingCredits   decimal.Decimal
	PendingDebits    decimal.Decimal
	FailedCredits    decimal.Decimal
	FailedDebits     decimal.Decimal
}

// IdempotencyRepository is the durable idempotency log, read outside the lock.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// WebhookEventRepository records settlement notifications by event id.
type WebhookEventRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	// Record stores event and returns false if the id was already recorded.
	Record(ctx context.Context, event *domain.WebhookEvent) (bool, error)
}

// AuditRepository defines persistence for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// LedgerTx is the view of the store inside a wallet critical section.
// Changes become visible only when the enclosing WithWalletLock returns nil.
type LedgerTx interface {
	// Wallet returns the locked wallet, or nil if it does not exist.
	Wallet(id string) *domain.Wallet
	SetBalance(ctx context.Context, walletID string, balance decimal.Decimal) error
	// AppendTransaction persists t and assigns t.Seq.
	AppendTransaction(ctx context.Context, t *domain.Transaction) error
	GetIdempotency(ctx context.Context, key string) (*domain.IdempotencyLog, error)
	SaveIdempotency(ctx context.Context, log *domain.IdempotencyLog) error
}

// WalletTransactor runs fn with exclusive access to the given wallets.
// Locks are taken in ascending id order. fn returning an error discards every change.
type WalletTransactor interface {
	WithWalletLock(ctx context.Context, walletIDs []string, fn func(ctx context.Context, tx LedgerTx) error) error
}
