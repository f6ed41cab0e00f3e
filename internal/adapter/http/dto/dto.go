package dto

import "github.com/shopspring/decimal"

// Amounts are decimal.Decimal on input so both "12.50" and 12.5 bind.
// Positivity and scale are checked by the ledger, not by binding tags.

// CreateWalletRequest is the request body for wallet creation.
type CreateWalletRequest struct {
	UserID   string         `json:"user_id" binding:"omitempty,max=128"`
	Type     string         `json:"type" binding:"omitempty,wallet_type" sanitize:"lower"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MintRequest is the request body for minting.
type MintRequest struct {
	UserID             string          `json:"user_id" binding:"omitempty,max=128"`
	Amount             decimal.Decimal `json:"amount"`
	DestinationAddress string          `json:"destination_address" binding:"omitempty,max=128"`
	BankReference      string          `json:"bank_reference" binding:"omitempty,max=256"`
}

// BurnRequest is the request body for burning.
type BurnRequest struct {
	UserID        string          `json:"user_id" binding:"omitempty,max=128"`
	WalletID      string          `json:"wallet_id" binding:"required,safe_id,max=64"`
	Amount        decimal.Decimal `json:"amount"`
	BankReference string          `json:"bank_reference" binding:"omitempty,max=256"`
}

// TransferRequest is the request body for an outgoing transfer.
type TransferRequest struct {
	UserID             string          `json:"user_id" binding:"omitempty,max=128"`
	WalletID           string          `json:"wallet_id" binding:"required,safe_id,max=64"`
	Amount             decimal.Decimal `json:"amount"`
	DestinationAddress string          `json:"destination_address" binding:"required,safe_id,max=128"`
}

// FeeEstimateQuery is bound from the query string of GET /fees/estimate.
type FeeEstimateQuery struct {
	Operation string `form:"operation" binding:"required"`
	Amount    string `form:"amount" binding:"required"`
	Chain     string `form:"chain" binding:"omitempty,max=16"`
}

// TransactionListQuery is bound from the query string of GET /transactions.
type TransactionListQuery struct {
	UserID string `form:"user_id" binding:"omitempty,max=128"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
	AsOf   int64  `form:"as_of"`
}

// WalletResponse is the response body for a wallet.
type WalletResponse struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Address   string         `json:"address"`
	Balance   string         `json:"balance"`
	Currency  string         `json:"currency"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"created_at"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	WalletID string                    `json:"wallet_id"`
	Balance  string                    `json:"balance"`
	Currency string                    `json:"currency"`
	Balances []CurrencyBalanceResponse `json:"balances"`
}

// CurrencyBalanceResponse is one entry of BalanceResponse.Balances.
type CurrencyBalanceResponse struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// MintResponse is the response body for a mint.
type MintResponse struct {
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	PaymentID string `json:"payment_id"`
	WalletID  string `json:"wallet_id"`
	Balance   string `json:"balance"`
}

// BurnResponse is the response body for a burn.
type BurnResponse struct {
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	PayoutID string `json:"payout_id"`
	WalletID string `json:"wallet_id"`
	Balance  string `json:"balance"`
}

// TransferResponse is the response body for a transfer.
type TransferResponse struct {
	Status          string `json:"status"`
	Amount          string `json:"amount"`
	TransferID      string `json:"transfer_id"`
	TransactionHash string `json:"transaction_hash"`
	WalletID        string `json:"wallet_id"`
	Balance         string `json:"balance"`
	Internal        bool   `json:"internal"`
}

// FeeQuoteResponse is the response body for a fee estimate.
type FeeQuoteResponse struct {
	Operation string `json:"operation"`
	Amount    string `json:"amount"`
	Fee       string `json:"fee"`
	Total     string `json:"total"`
	Chain     string `json:"chain,omitempty"`
	Currency  string `json:"currency"`
}

// TransactionResponse is one journal entry.
type TransactionResponse struct {
	ID           string `json:"id"`
	WalletID     string `json:"wallet_id"`
	Seq          int64  `json:"seq"`
	Type         string `json:"type"`
	Direction    string `json:"direction"`
	Amount       string `json:"amount"`
	Counterparty string `json:"counterparty"`
	Status       string `json:"status"`
	Hash         string `json:"hash"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// TransactionListResponse wraps a journal page.
type TransactionListResponse struct {
	Items  []TransactionResponse `json:"items"`
	Total  int64                 `json:"total"`
	Offset int                   `json:"offset"`
	AsOf   int64                 `json:"as_of"`
}

// ReconciliationResponse is the response for a reconciliation query.
type ReconciliationResponse struct {
	WalletID        string `json:"wallet_id"`
	Balance         string `json:"balance"`
	InitialBalance  string `json:"initial_balance"`
	ConfirmedNet    string `json:"confirmed_net"`
	PendingNet      string `json:"pending_net"`
	FailedNet       string `json:"failed_net"`
	ExpectedBalance string `json:"expected_balance"`
	Drift           string `json:"drift"`
	Consistent      bool   `json:"consistent"`
}

// WebhookResponse is the response body for a settlement webhook.
type WebhookResponse struct {
	Processed     bool   `json:"processed"`
	Applied       bool   `json:"applied"`
	Duplicate     bool   `json:"duplicate"`
	TransactionID string `json:"transaction_id,omitempty"`
}
