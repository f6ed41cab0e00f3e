package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeMint     TransactionType = "mint"
	TransactionTypeBurn     TransactionType = "burn"
	TransactionTypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeMint, TransactionTypeBurn, TransactionTypeTransfer:
		return true
	}
	return false
}

// TransactionStatus represents the settlement state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Direction says whether a transaction added to or removed from the wallet.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Transaction is one journal entry. Only Status and UpdatedAt change after append.
type Transaction struct {
	ID             string            `json:"id"`
	WalletID       string            `json:"wallet_id"`
	Seq            int64             `json:"seq"`
	Type           TransactionType   `json:"type"`
	Direction      Direction         `json:"direction"`
	Amount         decimal.Decimal   `json:"amount"`
	Counterparty   string            `json:"counterparty"`
	Status         TransactionStatus `json:"status"`
	Hash           string            `json:"hash"`
	IdempotencyKey *string           `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusConfirmed ||
		t.Status == TransactionStatusFailed
}

// CanTransitionTo enforces pending -> confirmed | failed.
func (t *Transaction) CanTransitionTo(next TransactionStatus) bool {
	return t.Status == TransactionStatusPending &&
		(next == TransactionStatusConfirmed || next == TransactionStatusFailed)
}

// SignedAmount is the balance effect of the entry.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Direction == DirectionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
