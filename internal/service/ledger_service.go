package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultIdempotencyTTL = 24 * time.Hour

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	registry   ports.WalletRegistry
	txRepo     ports.TransactionRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	transactor ports.WalletTransactor
	provider   ports.SettlementProvider
	ids        ports.IDGenerator
	idempTTL   time.Duration
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl. idempCache may be nil.
func NewLedgerService(
	registry ports.WalletRegistry,
	txRepo ports.TransactionRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.WalletTransactor,
	provider ports.SettlementProvider,
	ids ports.IDGenerator,
	idempTTL time.Duration,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if idempTTL <= 0 {
		idempTTL = defaultIdempotencyTTL
	}
	return &LedgerServiceImpl{
		registry:   registry,
		txRepo:     txRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		transactor: transactor,
		provider:   provider,
		ids:        ids,
		idempTTL:   idempTTL,
		log:        log,
	}
}

// Mint credits amount to the user's wallet, creating the wallet if needed.
func (s *LedgerServiceImpl) Mint(ctx context.Context, req ports.MintRequest) (*ports.MintResult, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}

	wallet, err := s.registry.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	scope := newIdempotencyScope(wallet.UserID, domain.TransactionTypeMint, req.IdempotencyKey,
		req.Amount.String(), req.DestinationAddress, req.BankReference)

	result, err := execute(ctx, s, scope, []string{wallet.ID},
		func(ctx context.Context, tx ports.LedgerTx) (*ports.MintResult, []*domain.Transaction, error) {
			w := tx.Wallet(wallet.ID)
			if w == nil {
				return nil, nil, apperror.ErrWalletNotFound()
			}

			txn := s.newTransaction(w.ID, domain.TransactionTypeMint, domain.DirectionCredit,
				req.Amount, req.BankReference, s.provider.InitialStatus(), scope)
			newBalance := w.Balance.Add(req.Amount)
			if err := journal(ctx, tx, w.ID, newBalance, txn); err != nil {
				return nil, nil, err
			}

			return &ports.MintResult{
				Status:    txn.Status,
				Amount:    txn.Amount,
				PaymentID: txn.ID,
				WalletID:  w.ID,
				Balance:   newBalance,
			}, []*domain.Transaction{txn}, nil
		})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("payment_id", result.PaymentID).
		Str("wallet_id", result.WalletID).
		Str("amount", result.Amount.StringFixed(2)).
		Msg("mint processed")

	return result, nil
}

// Burn debits amount from walletID towards the bank account in BankReference.
func (s *LedgerServiceImpl) Burn(ctx context.Context, req ports.BurnRequest) (*ports.BurnResult, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}

	wallet, err := s.ownedWallet(ctx, req.WalletID, req.UserID)
	if err != nil {
		return nil, err
	}

	scope := newIdempotencyScope(wallet.UserID, domain.TransactionTypeBurn, req.IdempotencyKey,
		req.Amount.String(), wallet.ID, req.BankReference)

	result, err := execute(ctx, s, scope, []string{wallet.ID},
		func(ctx context.Context, tx ports.LedgerTx) (*ports.BurnResult, []*domain.Transaction, error) {
			w := tx.Wallet(wallet.ID)
			if w == nil {
				return nil, nil, apperror.ErrWalletNotFound()
			}
			if !w.CanDebit(req.Amount) {
				return nil, nil, apperror.ErrInsufficientBalance(req.Amount.StringFixed(2), w.Balance.StringFixed(2))
			}

			txn := s.newTransaction(w.ID, domain.TransactionTypeBurn, domain.DirectionDebit,
				req.Amount, req.BankReference, s.provider.InitialStatus(), scope)
			newBalance := w.Balance.Sub(req.Amount)
			if err := journal(ctx, tx, w.ID, newBalance, txn); err != nil {
				return nil, nil, err
			}

			return &ports.BurnResult{
				Status:   txn.Status,
				Amount:   txn.Amount,
				PayoutID: txn.ID,
				WalletID: w.ID,
				Balance:  newBalance,
			}, []*domain.Transaction{txn}, nil
		})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("payout_id", result.PayoutID).
		Str("wallet_id", result.WalletID).
		Str("amount", result.Amount.StringFixed(2)).
		Msg("burn processed")

	return result, nil
}

// Transfer debits amount from walletID towards DestinationAddress. When the
// address belongs to another ledger wallet that wallet is credited in the same
// critical section.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	destination := strings.TrimSpace(req.DestinationAddress)
	if destination == "" {
		return nil, apperror.Validation("destination_address is required")
	}

	wallet, err := s.ownedWallet(ctx, req.WalletID, req.UserID)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(destination, wallet.Address) {
		return nil, apperror.Validation("destination_address must differ from the source wallet address")
	}

	target, err := s.registry.GetByAddress(ctx, strings.ToLower(destination))
	if err != nil {
		return nil, err
	}
	lockIDs := []string{wallet.ID}
	if target != nil {
		lockIDs = append(lockIDs, target.ID)
	}

	scope := newIdempotencyScope(wallet.UserID, domain.TransactionTypeTransfer, req.IdempotencyKey,
		req.Amount.String(), wallet.ID, destination)

	result, err := execute(ctx, s, scope, lockIDs,
		func(ctx context.Context, tx ports.LedgerTx) (*ports.TransferResult, []*domain.Transaction, error) {
			src := tx.Wallet(wallet.ID)
			if src == nil {
				return nil, nil, apperror.ErrWalletNotFound()
			}
			if !src.CanDebit(req.Amount) {
				return nil, nil, apperror.ErrInsufficientBalance(req.Amount.StringFixed(2), src.Balance.StringFixed(2))
			}

			var dst *domain.Wallet
			if target != nil {
				dst = tx.Wallet(target.ID)
			}

			status := s.provider.InitialStatus()
			if dst != nil {
				status = domain.TransactionStatusConfirmed
			}

			debit := s.newTransaction(src.ID, domain.TransactionTypeTransfer, domain.DirectionDebit,
				req.Amount, destination, status, scope)
			srcBalance := src.Balance.Sub(req.Amount)
			if err := journal(ctx, tx, src.ID, srcBalance, debit); err != nil {
				return nil, nil, err
			}
			journaled := []*domain.Transaction{debit}

			if dst != nil {
				credit := s.newTransaction(dst.ID, domain.TransactionTypeTransfer, domain.DirectionCredit,
					req.Amount, src.Address, status, idempotencyScope{})
				credit.Hash = debit.Hash
				if err := journal(ctx, tx, dst.ID, dst.Balance.Add(req.Amount), credit); err != nil {
					return nil, nil, err
				}
				journaled = append(journaled, credit)
			}

			return &ports.TransferResult{
				Status:          debit.Status,
				Amount:          debit.Amount,
				TransferID:      debit.ID,
				TransactionHash: debit.Hash,
				WalletID:        src.ID,
				Balance:         srcBalance,
				Internal:        dst != nil,
			}, journaled, nil
		})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transfer_id", result.TransferID).
		Str("wallet_id", result.WalletID).
		Str("amount", result.Amount.StringFixed(2)).
		Bool("internal", result.Internal).
		Msg("transfer processed")

	return result, nil
}

// GetBalance returns the wallet balance.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, walletID string) (*ports.BalanceResult, error) {
	wallet, err := s.registry.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}

	return &ports.BalanceResult{
		WalletID: wallet.ID,
		Balance:  wallet.Balance,
		Currency: wallet.Currency,
		Balances: []ports.CurrencyBalance{
			{Currency: wallet.Currency, Amount: wallet.Balance},
		},
	}, nil
}

// Reconcile recomputes the wallet balance from its journal. Pending entries
// count towards the expected balance; failed entries show up as drift.
func (s *LedgerServiceImpl) Reconcile(ctx context.Context, walletID string) (*ports.Reconciliation, error) {
	wallet, err := s.registry.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}

	stats, err := s.txRepo.GetStats(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("journal stats: %w", err))
	}

	confirmed := stats.ConfirmedCredits.Sub(stats.ConfirmedDebits)
	pending := stats.PendingCredits.Sub(stats.PendingDebits)
	failed := stats.FailedCredits.Sub(stats.FailedDebits)
	expected := wallet.InitialBalance.Add(confirmed).Add(pending)
	drift := wallet.Balance.Sub(expected)

	if !drift.IsZero() {
		s.log.Warn().
			Str("wallet_id", wallet.ID).
			Str("drift", drift.StringFixed(2)).
			Msg("ledger drift detected")
	}

	return &ports.Reconciliation{
		WalletID:        wallet.ID,
		Balance:         wallet.Balance,
		InitialBalance:  wallet.InitialBalance,
		ConfirmedNet:    confirmed,
		PendingNet:      pending,
		FailedNet:       failed,
		ExpectedBalance: expected,
		Drift:           drift,
		Consistent:      drift.IsZero(),
	}, nil
}

// ownedWallet loads walletID and hides wallets that belong to another user.
func (s *LedgerServiceImpl) ownedWallet(ctx context.Context, walletID, userID string) (*domain.Wallet, error) {
	if strings.TrimSpace(walletID) == "" {
		return nil, apperror.Validation("wallet_id is required")
	}
	wallet, err := s.registry.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if userID != "" && wallet.UserID != userID {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}

func (s *LedgerServiceImpl) newTransaction(
	walletID string,
	txType domain.TransactionType,
	direction domain.Direction,
	amount decimal.Decimal,
	counterparty string,
	status domain.TransactionStatus,
	scope idempotencyScope,
) *domain.Transaction {
	now := time.Now().UTC()
	id := s.ids.Generate(domain.PrefixFor(txType))
	txn := &domain.Transaction{
		ID:           id,
		WalletID:     walletID,
		Type:         txType,
		Direction:    direction,
		Amount:       amount,
		Counterparty: counterparty,
		Status:       status,
		Hash:         settlementHash(id, walletID, amount.String(), counterparty, strconv.FormatInt(now.UnixNano(), 10)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if scope.key != "" {
		key := scope.key
		txn.IdempotencyKey = &key
	}
	return txn
}

// settle hands pending transactions to the provider after commit. Failures
// leave the entry pending for the webhook path to resolve.
func (s *LedgerServiceImpl) settle(ctx context.Context, txns []*domain.Transaction) {
	ctx = context.WithoutCancel(ctx)
	for _, t := range txns {
		if t.Status != domain.TransactionStatusPending {
			continue
		}
		if err := s.provider.Submit(ctx, t); err != nil {
			s.log.Warn().Err(err).Str("tx_id", t.ID).Str("provider", s.provider.Name()).Msg("settlement submission failed")
		}
	}
}

// journal writes the new balance and appends t inside the critical section.
func journal(ctx context.Context, tx ports.LedgerTx, walletID string, balance decimal.Decimal, t *domain.Transaction) error {
	if balance.IsNegative() {
		return apperror.InternalError(fmt.Errorf("wallet %s would go negative", walletID))
	}
	if err := tx.SetBalance(ctx, walletID, balance); err != nil {
		return apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	if err := tx.AppendTransaction(ctx, t); err != nil {
		return apperror.InternalError(fmt.Errorf("append transaction: %w", err))
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(2)) {
		return apperror.ErrInvalidAmount()
	}
	return nil
}

// ---- idempotency ----

type idempotencyScope struct {
	key         string // empty when the caller sent no key
	requestHash string
}

func newIdempotencyScope(userID string, op domain.TransactionType, callerKey string, fields ...string) idempotencyScope {
	callerKey = strings.TrimSpace(callerKey)
	if callerKey == "" {
		return idempotencyScope{}
	}
	sum := sha256.Sum256([]byte(string(op) + "|" + strings.Join(fields, "|")))
	return idempotencyScope{
		key:         domain.BuildIdempotencyKey(userID, op, callerKey),
		requestHash: hex.EncodeToString(sum[:]),
	}
}

// mutation runs inside the wallet critical section and returns the operation
// result plus the journal entries it appended.
type mutation[R any] func(ctx context.Context, tx ports.LedgerTx) (*R, []*domain.Transaction, error)

// execute runs apply under the wallet locks with idempotency on both sides of
// the lock: a fast lookup before locking and the authoritative one inside.
func execute[R any](ctx context.Context, s *LedgerServiceImpl, scope idempotencyScope, walletIDs []string, apply mutation[R]) (*R, error) {
	prior, err := s.lookupIdempotent(ctx, scope)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return replay[R](prior, scope)
	}

	var (
		result    *R
		journaled []*domain.Transaction
		saved     *domain.IdempotencyLog
	)
	err = s.transactor.WithWalletLock(ctx, walletIDs, func(ctx context.Context, tx ports.LedgerTx) error {
		if scope.key != "" {
			prior, err := tx.GetIdempotency(ctx, scope.key)
			if err != nil {
				return apperror.InternalError(fmt.Errorf("idempotency check: %w", err))
			}
			if prior != nil {
				result, err = replay[R](prior, scope)
				return err
			}
		}

		r, txns, err := apply(ctx, tx)
		if err != nil {
			return err
		}
		result, journaled = r, txns

		if scope.key == "" {
			return nil
		}
		respJSON, err := json.Marshal(r)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		saved = &domain.IdempotencyLog{
			Key:           scope.key,
			TransactionID: txns[0].ID,
			RequestHash:   scope.requestHash,
			ResponseJSON:  respJSON,
			CreatedAt:     time.Now().UTC(),
		}
		if err := tx.SaveIdempotency(ctx, saved); err != nil {
			return apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
		}
		return nil
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.InternalError(err)
	}

	if saved != nil && s.idempCache != nil {
		if b, err := json.Marshal(saved); err == nil {
			if err := s.idempCache.Set(ctx, saved.Key, b, s.idempTTL); err != nil {
				s.log.Warn().Err(err).Str("key", saved.Key).Msg("failed to cache idempotency in redis")
			}
		}
	}

	s.settle(ctx, journaled)
	return result, nil
}

// lookupIdempotent checks Redis, then the durable log.
func (s *LedgerServiceImpl) lookupIdempotent(ctx context.Context, scope idempotencyScope) (*domain.IdempotencyLog, error) {
	if scope.key == "" {
		return nil, nil
	}

	if s.idempCache != nil {
		cached, err := s.idempCache.Get(ctx, scope.key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", scope.key).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			var entry domain.IdempotencyLog
			if err := json.Unmarshal(cached, &entry); err == nil {
				return &entry, nil
			}
			s.log.Warn().Str("key", scope.key).Msg("discarding unreadable idempotency cache entry")
		}
	}

	entry, err := s.idempRepo.Get(ctx, scope.key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	return entry, nil
}

func replay[R any](entry *domain.IdempotencyLog, scope idempotencyScope) (*R, error) {
	if entry.RequestHash != scope.requestHash {
		return nil, apperror.ErrIdempotencyConflict()
	}
	var r R
	if err := json.Unmarshal(entry.ResponseJSON, &r); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached response: %w", err))
	}
	return &r, nil
}
