package service

import (
	"testing"

	"custodial-ledger/internal/core/domain"
	"custodial-ledger/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFeeSchedule() domain.FeeSchedule {
	return domain.FeeSchedule{
		MintBurnRate: decimal.RequireFromString("0.001"),
		NetworkFees: map[string]decimal.Decimal{
			"eth": decimal.RequireFromString("5.00"),
			"SOL": decimal.RequireFromString("1.00"),
		},
		DefaultNetworkFee: decimal.RequireFromString("2.00"),
	}
}

func TestFeeEstimator_Estimate(t *testing.T) {
	est := NewFeeEstimator(testFeeSchedule(), domain.CurrencyUSDC)

	tests := []struct {
		name      string
		op        domain.TransactionType
		amount    string
		chain     string
		wantFee   string
		wantTotal string
		wantChain string
	}{
		{"mint proportional", domain.TransactionTypeMint, "1000", "", "1.00", "1001.00", ""},
		{"burn rounds to cents", domain.TransactionTypeBurn, "12.34", "", "0.01", "12.35", ""},
		{"burn tiny rounds to zero", domain.TransactionTypeBurn, "1", "", "0.00", "1.00", ""},
		{"transfer eth", domain.TransactionTypeTransfer, "100", "ETH", "5.00", "105.00", "ETH"},
		{"transfer chain case-insensitive", domain.TransactionTypeTransfer, "100", " sol ", "1.00", "101.00", "SOL"},
		{"transfer unknown chain", domain.TransactionTypeTransfer, "100", "avax", "2.00", "102.00", "AVAX"},
		{"transfer no chain", domain.TransactionTypeTransfer, "100", "", "2.00", "102.00", ""},
		{"zero amount quotes", domain.TransactionTypeMint, "0", "", "0.00", "0.00", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := est.Estimate(tt.op, decimal.RequireFromString(tt.amount), tt.chain)
			require.NoError(t, err)
			assert.Equal(t, tt.op, quote.Operation)
			assert.Equal(t, tt.wantFee, quote.Fee.StringFixed(2))
			assert.Equal(t, tt.wantTotal, quote.Total.StringFixed(2))
			assert.Equal(t, tt.wantChain, quote.Chain)
			assert.Equal(t, domain.CurrencyUSDC, quote.Currency)
		})
	}
}

func TestFeeEstimator_NegativeAmount(t *testing.T) {
	est := NewFeeEstimator(testFeeSchedule(), domain.CurrencyUSDC)

	_, err := est.Estimate(domain.TransactionTypeMint, decimal.NewFromInt(-1), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount())
}

func TestFeeEstimator_UnknownOperation(t *testing.T) {
	est := NewFeeEstimator(testFeeSchedule(), domain.CurrencyUSDC)

	_, err := est.Estimate("swap", decimal.NewFromInt(10), "")
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_001", appErr.Code)
}

func TestFeeEstimator_DoesNotAliasSchedule(t *testing.T) {
	schedule := testFeeSchedule()
	est := NewFeeEstimator(schedule, domain.CurrencyUSDC)

	schedule.NetworkFees["ETH"] = decimal.NewFromInt(99)

	quote, err := est.Estimate(domain.TransactionTypeTransfer, decimal.NewFromInt(1), "eth")
	require.NoError(t, err)
	assert.Equal(t, "5.00", quote.Fee.StringFixed(2))
}

func TestFeeEstimator_Deterministic(t *testing.T) {
	est := NewFeeEstimator(testFeeSchedule(), domain.CurrencyUSDC)

	for _, op := range []domain.TransactionType{domain.TransactionTypeMint, domain.TransactionTypeBurn, domain.TransactionTypeTransfer} {
		first, err := est.Estimate(op, decimal.RequireFromString("123.45"), "eth")
		require.NoError(t, err)
		second, err := est.Estimate(op, decimal.RequireFromString("123.45"), "eth")
		require.NoError(t, err)

		assert.True(t, first.Fee.Equal(second.Fee), "%s fee", op)
		assert.True(t, first.Total.Equal(second.Total), "%s total", op)
		assert.Equal(t, first.Chain, second.Chain)
	}
}
