package domain

import "github.com/shopspring/decimal"

// FeeSchedule is loaded once at startup.
type FeeSchedule struct {
	MintBurnRate      decimal.Decimal
	NetworkFees       map[string]decimal.Decimal // keyed by upper-case chain
	DefaultNetworkFee decimal.Decimal
}

// FeeQuote is the answer to a fee estimate.
type FeeQuote struct {
	Operation TransactionType `json:"operation"`
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
	Total     decimal.Decimal `json:"total"`
	Chain     string          `json:"chain,omitempty"`
	Currency  string          `json:"currency"`
}
