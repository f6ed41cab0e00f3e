package ports

import (
	"context"
	"time"

	"custodial-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=services.go -destination=mocks/services.go -package=mocks

// IDGenerator produces unique identifiers embedding a prefix.
type IDGenerator interface {
	Generate(prefix domain.IDPrefix) string
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload []byte) string
	Verify(secretKey string, payload []byte, signature string) bool
}

// SettlementProvider is the boundary to the external rail or chain.
type SettlementProvider interface {
	Name() string
	// InitialStatus is the status new transactions are journaled with.
	InitialStatus() domain.TransactionStatus
	NewAddress(ctx context.Context, userID string) (string, error)
	VerifySignature(payload []byte, signature string) bool
	// Submit hands a journaled transaction to the provider. It is never
	// called while a wallet lock is held.
	Submit(ctx context.Context, t *domain.Transaction) error
}

// TokenService validates bearer tokens issued by the upstream auth layer.
type TokenService interface {
	Generate(userID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID string
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// AuditService records audited actions.
type AuditService interface {
	Log(ctx context.Context, entry AuditEntry)
}

// AuditEntry is the input of AuditService.Log.
type AuditEntry struct {
	UserID       *string
	Action       domain.AuditAction
	ResourceType domain.AuditResource
	ResourceID   string
	Details      map[string]any
	IPAddress    string
}

// --- Service Ports (Business Logic) ---

// FeeEstimator quotes fees. It is pure and safe for concurrent use.
type FeeEstimator interface {
	Estimate(op domain.TransactionType, amount decimal.Decimal, chain string) (*domain.FeeQuote, error)
}

// WalletRegistry owns the one-wallet-per-user mapping.
type WalletRegistry interface {
	CreateOrGet(ctx context.Context, req CreateWalletRequest) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	GetByID(ctx context.Context, walletID string) (*domain.Wallet, error)
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)
}

// CreateWalletRequest holds input for wallet creation.
type CreateWalletRequest struct {
	UserID   string
	Type     domain.WalletType
	Metadata map[string]any
}

// LedgerService applies balance mutations.
type LedgerService interface {
	Mint(ctx context.Context, req MintRequest) (*MintResult, error)
	Burn(ctx context.Context, req BurnRequest) (*BurnResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	GetBalance(ctx context.Context, walletID string) (*BalanceResult, error)
	Reconcile(ctx context.Context, walletID string) (*Reconciliation, error)
}

// MintRequest credits the user's wallet.
type MintRequest struct {
	UserID             string
	Amount             decimal.Decimal
	DestinationAddress string
	BankReference      string
	IdempotencyKey     string
}

// BurnRequest debits a wallet towards a bank account.
type BurnRequest struct {
	UserID         string
	WalletID       string
	Amount         decimal.Decimal
	BankReference  string
	IdempotencyKey string
}

// TransferRequest debits a wallet towards an address.
type TransferRequest struct {
	UserID             string
	WalletID           string
	Amount             decimal.Decimal
	DestinationAddress string
	IdempotencyKey     string
}

// MintResult is returned by Mint.
type MintResult struct {
	Status    domain.TransactionStatus `json:"status"`
	Amount    decimal.Decimal          `json:"amount"`
	PaymentID string                   `json:"payment_id"`
	WalletID  string                   `json:"wallet_id"`
	Balance   decimal.Decimal          `json:"balance"`
}

// BurnResult is returned by Burn.
type BurnResult struct {
	Status   domain.TransactionStatus `json:"status"`
	Amount   decimal.Decimal          `json:"amount"`
	PayoutID string                   `json:"payout_id"`
	WalletID string                   `json:"wallet_id"`
	Balance  decimal.Decimal          `json:"balance"`
}

// TransferResult is returned by Transfer.
type TransferResult struct {
	Status          domain.TransactionStatus `json:"status"`
	Amount          decimal.Decimal          `json:"amount"`
	TransferID      string                   `json:"transfer_id"`
	TransactionHash string                   `json:"transaction_hash"`
	WalletID        string                   `json:"wallet_id"`
	Balance         decimal.Decimal          `json:"balance"`
	Internal        bool                     `json:"internal"`
}

// BalanceResult is returned by GetBalance.
type BalanceResult struct {
	WalletID string
	Balance  decimal.Decimal
	Currency string
	Balances []CurrencyBalance
}

// CurrencyBalance is one entry of BalanceResult.Balances.
type CurrencyBalance struct {
	Currency string
	Amount   decimal.Decimal
}

// Reconciliation recomputes a wallet balance from its journal.
type Reconciliation struct {
	WalletID        string
	Balance         decimal.Decimal
	InitialBalance  decimal.Decimal
	ConfirmedNet    decimal.Decimal
	PendingNet      decimal.Decimal
	FailedNet       decimal.Decimal
	ExpectedBalance decimal.Decimal // initial + confirmed + pending
	Drift           decimal.Decimal // balance - expected
	Consistent      bool
}

// TransactionJournal serves journal queries by user.
type TransactionJournal interface {
	Query(ctx context.Context, q TransactionQuery) (*TransactionPage, error)
}

// TransactionQuery holds input for TransactionJournal.Query.
type TransactionQuery struct {
	UserID string
	Limit  int
	Offset int
	AsOf   int64
}

// WebhookIngestor reconciles settlement notifications into the journal.
type WebhookIngestor interface {
	Verify(payload []byte, signature string) bool
	Handle(ctx context.Context, payload []byte) (*WebhookResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
}

// WebhookResult is returned by WebhookIngestor.Handle.
type WebhookResult struct {
	Processed     bool   `json:"processed"`
	Applied       bool   `json:"applied"`
	Duplicate     bool   `json:"duplicate"`
	TransactionID string `json:"transaction_id,omitempty"`
}
