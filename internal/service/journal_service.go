package service

import (
	"context"
	"fmt"
	"strings"

	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/pkg/apperror"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// journalService implements ports.TransactionJournal.
type journalService struct {
	txRepo     ports.TransactionRepository
	walletRepo ports.WalletRepository
}

// NewJournalService creates a new journal query service.
func NewJournalService(txRepo ports.TransactionRepository, walletRepo ports.WalletRepository) ports.TransactionJournal {
	return &journalService{
		txRepo:     txRepo,
		walletRepo: walletRepo,
	}
}

// Query returns the user's journal newest first. Users without a wallet get an
// empty page; querying never creates a wallet.
func (s *journalService) Query(ctx context.Context, q ports.TransactionQuery) (*ports.TransactionPage, error) {
	userID := strings.TrimSpace(q.UserID)
	if userID == "" {
		return nil, apperror.Validation("user_id is required")
	}
	if q.AsOf < 0 {
		return nil, apperror.Validation("as_of must not be negative")
	}

	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet by user: %w", err))
	}
	if wallet == nil {
		return &ports.TransactionPage{Transactions: []domain.Transaction{}, AsOf: q.AsOf}, nil
	}

	page, err := s.txRepo.List(ctx, ports.TransactionListParams{
		WalletID: wallet.ID,
		Limit:    clampLimit(q.Limit),
		Offset:   max(q.Offset, 0),
		AsOf:     q.AsOf,
	})
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if page.Transactions == nil {
		page.Transactions = []domain.Transaction{}
	}
	return page, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	default:
		return limit
	}
}
