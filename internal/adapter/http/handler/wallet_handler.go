package handler

import (
	"custodial-ledger/internal/adapter/http/dto"
	"custodial-ledger/internal/adapter/http/middleware"
	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/pkg/apperror"
	"custodial-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	registry ports.WalletRegistry
	ledger   ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(registry ports.WalletRegistry, ledger ports.LedgerService) *WalletHandler {
	return &WalletHandler{registry: registry, ledger: ledger}
}

// CreateWallet handles POST /api/v1/wallets. Repeated calls return the
// existing wallet unchanged.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, middleware.BodyError(err))
		return
	}
	dto.SanitizeStruct(&req)

	userID, err := resolveUserID(c, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	wallet, err := h.registry.CreateOrGet(c.Request.Context(), ports.CreateWalletRequest{
		UserID:   userID,
		Type:     domain.WalletType(req.Type),
		Metadata: req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, wallet.ID)
	response.OK(c, toWalletResponse(wallet))
}

// GetBalance handles GET /api/v1/wallets/:walletId/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	walletID := c.Param("walletId")
	if err := h.authorize(c, walletID); err != nil {
		response.Error(c, err)
		return
	}

	balance, err := h.ledger.GetBalance(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBalanceResponse(balance))
}

// Reconcile handles GET /api/v1/wallets/:walletId/reconciliation.
func (h *WalletHandler) Reconcile(c *gin.Context) {
	walletID := c.Param("walletId")
	if err := h.authorize(c, walletID); err != nil {
		response.Error(c, err)
		return
	}

	rec, err := h.ledger.Reconcile(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toReconciliationResponse(rec))
}

// authorize hides wallets of other users when bearer auth is on.
func (h *WalletHandler) authorize(c *gin.Context, walletID string) error {
	userID, ok := middleware.AuthenticatedUser(c)
	if !ok {
		return nil
	}
	wallet, err := h.registry.GetByID(c.Request.Context(), walletID)
	if err != nil {
		return err
	}
	if wallet.UserID != userID {
		return apperror.ErrWalletNotFound()
	}
	return nil
}
