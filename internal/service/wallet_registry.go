package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// WalletRegistryImpl implements ports.WalletRegistry.
type WalletRegistryImpl struct {
	walletRepo  ports.WalletRepository
	provider    ports.SettlementProvider
	ids         ports.IDGenerator
	seedBalance decimal.Decimal
	currency    string
	group       singleflight.Group
	log         zerolog.Logger
}

// NewWalletRegistry creates a new WalletRegistryImpl. Every new wallet starts with seedBalance.
func NewWalletRegistry(
	walletRepo ports.WalletRepository,
	provider ports.SettlementProvider,
	ids ports.IDGenerator,
	seedBalance decimal.Decimal,
	currency string,
	log zerolog.Logger,
) *WalletRegistryImpl {
	return &WalletRegistryImpl{
		walletRepo:  walletRepo,
		provider:    provider,
		ids:         ids,
		seedBalance: seedBalance,
		currency:    currency,
		log:         log,
	}
}

// CreateOrGet returns the user's wallet, creating it on first call. Later calls
// return the stored wallet unchanged, ignoring their type and metadata.
func (r *WalletRegistryImpl) CreateOrGet(ctx context.Context, req ports.CreateWalletRequest) (*domain.Wallet, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, apperror.Validation("user_id is required")
	}

	existing, err := r.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet by user: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	walletType := req.Type
	if walletType == "" {
		walletType = domain.WalletTypeConsumer
	}
	if !walletType.Valid() {
		return nil, apperror.Validation("wallet type must be enterprise or consumer")
	}

	// Concurrent first calls for one user share a single insert attempt. The
	// insert outlives any one caller so a cancelled leader cannot fail the rest.
	insertCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(userID, func() (interface{}, error) {
		return r.create(insertCtx, userID, walletType, req.Metadata)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Wallet).Clone(), nil
	}
}

func (r *WalletRegistryImpl) create(ctx context.Context, userID string, walletType domain.WalletType, metadata map[string]any) (*domain.Wallet, error) {
	address, err := r.provider.NewAddress(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("allocate address: %w", err))
	}

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:             r.ids.Generate(domain.PrefixWallet),
		UserID:         userID,
		Type:           walletType,
		Address:        address,
		Balance:        r.seedBalance,
		InitialBalance: r.seedBalance,
		Currency:       r.currency,
		Metadata:       metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	stored, created, err := r.walletRepo.CreateIfAbsent(ctx, wallet)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}
	if created {
		r.log.Info().
			Str("wallet_id", stored.ID).
			Str("user_id", userID).
			Str("type", string(walletType)).
			Msg("wallet created")
	}
	return stored, nil
}

// GetByUserID returns the user's wallet, auto-creating a consumer wallet.
func (r *WalletRegistryImpl) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	return r.CreateOrGet(ctx, ports.CreateWalletRequest{UserID: userID})
}

// GetByID returns the wallet or a WalletNotFound error.
func (r *WalletRegistryImpl) GetByID(ctx context.Context, walletID string) (*domain.Wallet, error) {
	wallet, err := r.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}

// GetByAddress returns the ledger wallet holding address, or nil.
func (r *WalletRegistryImpl) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	wallet, err := r.walletRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet by address: %w", err))
	}
	return wallet, nil
}
