package service

import (
	"context"
	"testing"
	"time"

	"custodial-ledger/internal/adapter/storage/memory"
	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const externalAddress = "0x00000000000000000000000000000000000e7e41"

var seedBalance = decimal.NewFromInt(1000)

type ledgerFixture struct {
	store    *memory.Store
	registry *WalletRegistryImpl
	ledger   *LedgerServiceImpl
	journal  ports.TransactionJournal
}

func newLedgerFixture(t *testing.T, provider ports.SettlementProvider, cache ports.IdempotencyCache) *ledgerFixture {
	t.Helper()
	if provider == nil {
		provider = NewMockSettlementProvider()
	}
	store := memory.NewStore()
	ids := NewMockIDGenerator()
	registry := NewWalletRegistry(store.Wallets(), provider, ids, seedBalance, domain.CurrencyUSDC, newTestLogger())
	ledger := NewLedgerService(registry, store.Transactions(), store.Idempotency(), cache,
		store.Transactor(), provider, ids, time.Hour, newTestLogger())
	return &ledgerFixture{
		store:    store,
		registry: registry,
		ledger:   ledger,
		journal:  NewJournalService(store.Transactions(), store.Wallets()),
	}
}

func (f *ledgerFixture) wallet(t *testing.T, userID string) *domain.Wallet {
	t.Helper()
	w, err := f.registry.CreateOrGet(context.Background(), ports.CreateWalletRequest{UserID: userID})
	require.NoError(t, err)
	return w
}

func (f *ledgerFixture) balance(t *testing.T, walletID string) decimal.Decimal {
	t.Helper()
	b, err := f.ledger.GetBalance(context.Background(), walletID)
	require.NoError(t, err)
	return b.Balance
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
