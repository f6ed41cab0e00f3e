package handler

import (
	"strings"
	"time"

	"custodial-ledger/internal/adapter/http/dto"
	"custodial-ledger/internal/adapter/http/middleware"
	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// money renders amounts with the ledger's two fraction digits.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// resolveUserID returns the authenticated user when bearer auth is on,
// otherwise the user named in the request.
func resolveUserID(c *gin.Context, requested string) (string, error) {
	if userID, ok := middleware.AuthenticatedUser(c); ok {
		return userID, nil
	}
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return "", apperror.Validation("user_id is required")
	}
	return requested, nil
}

func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	metadata := w.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return dto.WalletResponse{
		ID:        w.ID,
		UserID:    w.UserID,
		Type:      string(w.Type),
		Address:   w.Address,
		Balance:   money(w.Balance),
		Currency:  w.Currency,
		Metadata:  metadata,
		CreatedAt: timestamp(w.CreatedAt),
	}
}

func toBalanceResponse(b *ports.BalanceResult) dto.BalanceResponse {
	balances := make([]dto.CurrencyBalanceResponse, 0, len(b.Balances))
	for _, cb := range b.Balances {
		balances = append(balances, dto.CurrencyBalanceResponse{Currency: cb.Currency, Amount: money(cb.Amount)})
	}
	return dto.BalanceResponse{
		WalletID: b.WalletID,
		Balance:  money(b.Balance),
		Currency: b.Currency,
		Balances: balances,
	}
}

func toTransactionResponse(t domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:           t.ID,
		WalletID:     t.WalletID,
		Seq:          t.Seq,
		Type:         string(t.Type),
		Direction:    string(t.Direction),
		Amount:       money(t.Amount),
		Counterparty: t.Counterparty,
		Status:       string(t.Status),
		Hash:         t.Hash,
		CreatedAt:    timestamp(t.CreatedAt),
		UpdatedAt:    timestamp(t.UpdatedAt),
	}
}

func toReconciliationResponse(r *ports.Reconciliation) dto.ReconciliationResponse {
	return dto.ReconciliationResponse{
		WalletID:        r.WalletID,
		Balance:         money(r.Balance),
		InitialBalance:  money(r.InitialBalance),
		ConfirmedNet:    money(r.ConfirmedNet),
		PendingNet:      money(r.PendingNet),
		FailedNet:       money(r.FailedNet),
		ExpectedBalance: money(r.ExpectedBalance),
		Drift:           money(r.Drift),
		Consistent:      r.Consistent,
	}
}
