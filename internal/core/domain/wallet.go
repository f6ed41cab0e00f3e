package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyUSDC is the only currency the ledger holds.
const CurrencyUSDC = "USDC"

// WalletType is fixed when the wallet is first created.
type WalletType string

const (
	WalletTypeEnterprise WalletType = "enterprise"
	WalletTypeConsumer   WalletType = "consumer"
)

// Valid reports whether t is a known wallet type.
func (t WalletType) Valid() bool {
	return t == WalletTypeEnterprise || t == WalletTypeConsumer
}

// Wallet is the custodial balance held for a single user.
type Wallet struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Type           WalletType      `json:"type"`
	Address        string          `json:"address"`
	Balance        decimal.Decimal `json:"balance"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Currency       string          `json:"currency"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Clone returns a copy that shares nothing mutable with w.
func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	c := *w
	if w.Metadata != nil {
		c.Metadata = make(map[string]any, len(w.Metadata))
		for k, v := range w.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// CanDebit reports whether amount can leave the wallet without going negative.
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}
