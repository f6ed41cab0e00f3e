package service

import (
	"strings"

	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/pkg/apperror"

	"github.com/shopspring/decimal"
)

// feeEstimator implements ports.FeeEstimator.
type feeEstimator struct {
	schedule domain.FeeSchedule
	currency string
}

// NewFeeEstimator creates a fee estimator over a fixed schedule.
func NewFeeEstimator(schedule domain.FeeSchedule, currency string) ports.FeeEstimator {
	network := make(map[string]decimal.Decimal, len(schedule.NetworkFees))
	for chain, fee := range schedule.NetworkFees {
		network[strings.ToUpper(chain)] = fee
	}
	schedule.NetworkFees = network
	return &feeEstimator{schedule: schedule, currency: currency}
}

// Estimate quotes the fee of op for amount. Mint and burn pay a proportional fee
// rounded to cents; transfers pay the flat network fee of chain.
func (e *feeEstimator) Estimate(op domain.TransactionType, amount decimal.Decimal, chain string) (*domain.FeeQuote, error) {
	if amount.IsNegative() {
		return nil, apperror.ErrInvalidAmount()
	}

	quote := &domain.FeeQuote{
		Operation: op,
		Amount:    amount,
		Currency:  e.currency,
	}

	switch op {
	case domain.TransactionTypeMint, domain.TransactionTypeBurn:
		quote.Fee = amount.Mul(e.schedule.MintBurnRate).Round(2)
	case domain.TransactionTypeTransfer:
		quote.Chain = strings.ToUpper(strings.TrimSpace(chain))
		fee, ok := e.schedule.NetworkFees[quote.Chain]
		if !ok {
			fee = e.schedule.DefaultNetworkFee
		}
		quote.Fee = fee
	default:
		return nil, apperror.Validation("operation must be one of mint, burn, transfer")
	}

	quote.Total = amount.Add(quote.Fee)
	return quote, nil
}
