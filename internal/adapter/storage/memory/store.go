// Package memory is a concurrency-safe in-process store used by tests and the
// demo deployment. It honours the same per-wallet locking contract as the
// PostgreSQL adapter.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// Store holds all ledger state. mu guards the maps and is held only briefly;
// wallet locks serialize mutations per wallet.
type Store struct {
	mu          sync.RWMutex
	wallets     map[string]*domain.Wallet
	byUser      map[string]string
	byAddress   map[string]string
	txns        map[string]*domain.Transaction
	byWallet    map[string][]*domain.Transaction // append order
	idempotency map[string]*domain.IdempotencyLog
	events      map[string]*domain.WebhookEvent
	audit       []*domain.AuditLog
	seq         int64

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		wallets:     make(map[string]*domain.Wallet),
		byUser:      make(map[string]string),
		byAddress:   make(map[string]string),
		txns:        make(map[string]*domain.Transaction),
		byWallet:    make(map[string][]*domain.Transaction),
		idempotency: make(map[string]*domain.IdempotencyLog),
		events:      make(map[string]*domain.WebhookEvent),
		locks:       make(map[string]chan struct{}),
	}
}

// Wallets returns the ports.WalletRepository view of the store.
func (s *Store) Wallets() *WalletRepo { return &WalletRepo{s: s} }

// Transactions returns the ports.TransactionRepository view of the store.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }

// Idempotency returns the ports.IdempotencyRepository view of the store.
func (s *Store) Idempotency() *IdempotencyRepo { return &IdempotencyRepo{s: s} }

// WebhookEvents returns the ports.WebhookEventRepository view of the store.
func (s *Store) WebhookEvents() *WebhookEventRepo { return &WebhookEventRepo{s: s} }

// Audit returns the ports.AuditRepository view of the store.
func (s *Store) Audit() *AuditRepo { return &AuditRepo{s: s} }

// Transactor returns the ports.WalletTransactor view of the store.
func (s *Store) Transactor() *Transactor { return &Transactor{s: s} }

// Name, Required and Ping let the store report itself on /health.
func (s *Store) Name() string { return "memory" }

func (s *Store) Required() bool { return true }

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wallets == nil {
		return fmt.Errorf("memory store not initialised")
	}
	return nil
}

// lockFor returns the single-slot semaphore guarding walletID.
func (s *Store) lockFor(walletID string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[walletID]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[walletID] = l
	}
	return l
}

// Transactor implements ports.WalletTransactor.
type Transactor struct {
	s *Store
}

// WithWalletLock acquires the wallet locks in ascending id order, runs fn
// against a staging view and applies the staged changes only if fn succeeds.
func (t *Transactor) WithWalletLock(ctx context.Context, walletIDs []string, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	ids := sortedUnique(walletIDs)

	held := make([]chan struct{}, 0, len(ids))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}()
	for _, id := range ids {
		l := t.s.lockFor(id)
		select {
		case l <- struct{}{}:
			held = append(held, l)
		case <-ctx.Done():
			return fmt.Errorf("lock wallet %s: %w", id, ctx.Err())
		}
	}

	tx := &ledgerTx{s: t.s, wallets: make(map[string]*domain.Wallet, len(ids))}
	t.s.mu.RLock()
	for _, id := range ids {
		if w, ok := t.s.wallets[id]; ok {
			tx.wallets[id] = w.Clone()
		}
	}
	t.s.mu.RUnlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit()
}

// ledgerTx implements ports.LedgerTx over staged copies.
type ledgerTx struct {
	s           *Store
	wallets     map[string]*domain.Wallet
	dirty       map[string]bool
	txns        []*domain.Transaction
	idempotency []*domain.IdempotencyLog
}

func (tx *ledgerTx) Wallet(id string) *domain.Wallet {
	return tx.wallets[id].Clone()
}

func (tx *ledgerTx) SetBalance(_ context.Context, walletID string, balance decimal.Decimal) error {
	w, ok := tx.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet %s is not locked", walletID)
	}
	w.Balance = balance
	if tx.dirty == nil {
		tx.dirty = make(map[string]bool)
	}
	tx.dirty[walletID] = true
	return nil
}

func (tx *ledgerTx) AppendTransaction(_ context.Context, t *domain.Transaction) error {
	if _, ok := tx.wallets[t.WalletID]; !ok {
		return fmt.Errorf("wallet %s is not locked", t.WalletID)
	}
	tx.txns = append(tx.txns, t)
	return nil
}

func (tx *ledgerTx) GetIdempotency(_ context.Context, key string) (*domain.IdempotencyLog, error) {
	for _, l := range tx.idempotency {
		if l.Key == key {
			c := *l
			return &c, nil
		}
	}
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	if l, ok := tx.s.idempotency[key]; ok {
		c := *l
		return &c, nil
	}
	return nil, nil
}

func (tx *ledgerTx) SaveIdempotency(_ context.Context, log *domain.IdempotencyLog) error {
	c := *log
	tx.idempotency = append(tx.idempotency, &c)
	return nil
}

func (tx *ledgerTx) commit() error {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()

	for _, l := range tx.idempotency {
		if _, exists := tx.s.idempotency[l.Key]; exists {
			return fmt.Errorf("idempotency key %q already recorded", l.Key)
		}
	}
	for _, t := range tx.txns {
		if _, exists := tx.s.txns[t.ID]; exists {
			return fmt.Errorf("transaction %q already exists", t.ID)
		}
	}

	for id := range tx.dirty {
		if _, ok := tx.s.wallets[id]; !ok {
			return fmt.Errorf("wallet %s vanished", id)
		}
	}

	now := time.Now().UTC()
	for id := range tx.dirty {
		stored := tx.s.wallets[id]
		staged := tx.wallets[id]
		stored.Balance = staged.Balance
		stored.UpdatedAt = now
	}
	for _, t := range tx.txns {
		tx.s.seq++
		t.Seq = tx.s.seq
		c := *t
		tx.s.txns[c.ID] = &c
		tx.s.byWallet[c.WalletID] = append(tx.s.byWallet[c.WalletID], &c)
	}
	for _, l := range tx.idempotency {
		tx.s.idempotency[l.Key] = l
	}
	return nil
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
