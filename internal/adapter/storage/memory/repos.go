package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	s *Store
}

func (r *WalletRepo) CreateIfAbsent(_ context.Context, wallet *domain.Wallet) (*domain.Wallet, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if id, ok := r.s.byUser[wallet.UserID]; ok {
		return r.s.wallets[id].Clone(), false, nil
	}
	if _, ok := r.s.wallets[wallet.ID]; ok {
		return nil, false, fmt.Errorf("wallet id %q already exists", wallet.ID)
	}
	address := strings.ToLower(wallet.Address)
	if _, ok := r.s.byAddress[address]; ok {
		return nil, false, fmt.Errorf("wallet address %q already exists", wallet.Address)
	}

	stored := wallet.Clone()
	stored.Address = address
	r.s.wallets[stored.ID] = stored
	r.s.byUser[stored.UserID] = stored.ID
	r.s.byAddress[address] = stored.ID
	return stored.Clone(), true, nil
}

func (r *WalletRepo) GetByID(_ context.Context, id string) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.wallets[id].Clone(), nil
}

func (r *WalletRepo) GetByUserID(_ context.Context, userID string) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byUser[userID]
	if !ok {
		return nil, nil
	}
	return r.s.wallets[id].Clone(), nil
}

func (r *WalletRepo) GetByAddress(_ context.Context, address string) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byAddress[strings.ToLower(address)]
	if !ok {
		return nil, nil
	}
	return r.s.wallets[id].Clone(), nil
}

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	s *Store
}

func (r *TransactionRepo) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.txns[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

// List returns a page of the wallet's journal, newest first, pinned to AsOf.
func (r *TransactionRepo) List(_ context.Context, params ports.TransactionListParams) (*ports.TransactionPage, error) {
	r.s.mu.RLock()
	asOf := params.AsOf
	if asOf == 0 {
		asOf = r.s.seq
	}
	entries := make([]domain.Transaction, 0, len(r.s.byWallet[params.WalletID]))
	for _, t := range r.s.byWallet[params.WalletID] {
		if t.Seq <= asOf {
			entries = append(entries, *t)
		}
	}
	r.s.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].Seq > entries[j].Seq
	})

	page := &ports.TransactionPage{Total: int64(len(entries)), AsOf: asOf}
	if params.Offset >= len(entries) {
		page.Transactions = []domain.Transaction{}
		return page, nil
	}
	end := len(entries)
	if params.Limit > 0 && params.Offset+params.Limit < end {
		end = params.Offset + params.Limit
	}
	page.Transactions = entries[params.Offset:end]
	return page, nil
}

func (r *TransactionRepo) UpdateStatus(_ context.Context, id string, from, to domain.TransactionStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.txns[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *TransactionRepo) GetStats(_ context.Context, walletID string) (*ports.TransactionStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats := &ports.TransactionStats{}
	for _, t := range r.s.byWallet[walletID] {
		stats.Count++
		var credits, debits *decimal.Decimal
		switch t.Status {
		case domain.TransactionStatusConfirmed:
			credits, debits = &stats.ConfirmedCredits, &stats.ConfirmedDebits
		case domain.TransactionStatusPending:
			credits, debits = &stats.PendingCredits, &stats.PendingDebits
		default:
			credits, debits = &stats.FailedCredits, &stats.FailedDebits
		}
		if t.Direction == domain.DirectionDebit {
			*debits = debits.Add(t.Amount)
		} else {
			*credits = credits.Add(t.Amount)
		}
	}
	return stats, nil
}

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	s *Store
}

func (r *IdempotencyRepo) Get(_ context.Context, key string) (*domain.IdempotencyLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.idempotency[key]
	if !ok {
		return nil, nil
	}
	c := *l
	return &c, nil
}

// WebhookEventRepo implements ports.WebhookEventRepository.
type WebhookEventRepo struct {
	s *Store
}

func (r *WebhookEventRepo) Exists(_ context.Context, id string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.events[id]
	return ok, nil
}

func (r *WebhookEventRepo) Record(_ context.Context, event *domain.WebhookEvent) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[event.ID]; ok {
		return false, nil
	}
	c := *event
	r.s.events[event.ID] = &c
	return true, nil
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	s *Store
}

func (r *AuditRepo) Create(_ context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *log
	r.s.audit = append(r.s.audit, &c)
	return nil
}

// Entries returns a snapshot of the recorded audit logs.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.AuditLog, 0, len(r.s.audit))
	for _, l := range r.s.audit {
		out = append(out, *l)
	}
	return out
}
