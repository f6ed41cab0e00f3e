package postgres

import (
	"time"

	"custodial-ledger/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
)

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newTestWallet(id, userID string) *domain.Wallet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Wallet{
		ID:             id,
		UserID:         userID,
		Type:           domain.WalletTypeConsumer,
		Address:        "0x52908400098527886e0f7030069857d2e4169ee7",
		Balance:        decimal.RequireFromString("1000"),
		InitialBalance: decimal.RequireFromString("1000"),
		Currency:       domain.CurrencyUSDC,
		Metadata:       map[string]any{"tier": "gold"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func walletColumnNames() []string {
	return []string{"id", "user_id", "type", "address", "balance", "initial_balance",
		"currency", "metadata", "created_at", "updated_at"}
}

func walletRows(ws ...*domain.Wallet) *pgxmock.Rows {
	rows := pgxmock.NewRows(walletColumnNames())
	for _, w := range ws {
		rows.AddRow(
			w.ID, w.UserID, string(w.Type), w.Address,
			w.Balance.StringFixed(2), w.InitialBalance.StringFixed(2),
			w.Currency, []byte(`{"tier":"gold"}`), w.CreatedAt, w.UpdatedAt,
		)
	}
	return rows
}

func newTestTransaction(id, walletID string, seq int64) *domain.Transaction {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Transaction{
		ID:           id,
		WalletID:     walletID,
		Seq:          seq,
		Type:         domain.TransactionTypeMint,
		Direction:    domain.DirectionCredit,
		Amount:       decimal.RequireFromString("100.50"),
		Counterparty: "bank_wire",
		Status:       domain.TransactionStatusConfirmed,
		Hash:         "0xabc",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func transactionRows(ts ...*domain.Transaction) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "wallet_id", "seq", "type", "direction", "amount",
		"counterparty", "status", "hash", "idempotency_key", "created_at", "updated_at"})
	for _, t := range ts {
		rows.AddRow(
			t.ID, t.WalletID, t.Seq, string(t.Type), string(t.Direction), t.Amount.StringFixed(2),
			t.Counterparty, string(t.Status), t.Hash, t.IdempotencyKey, t.CreatedAt, t.UpdatedAt,
		)
	}
	return rows
}
