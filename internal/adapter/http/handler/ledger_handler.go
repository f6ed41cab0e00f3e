package handler

import (
	"custodial-ledger/internal/adapter/http/dto"
	"custodial-ledger/internal/adapter/http/middleware"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler handles balance mutations. Every endpoint honours the
// Idempotency-Key header.
type LedgerHandler struct {
	ledger ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// Mint handles POST /api/v1/mint.
func (h *LedgerHandler) Mint(c *gin.Context) {
	var req dto.MintRequest
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

	result, err := h.ledger.Mint(c.Request.Context(), ports.MintRequest{
		UserID:             userID,
		Amount:             req.Amount,
		DestinationAddress: req.DestinationAddress,
		BankReference:      req.BankReference,
		IdempotencyKey:     idempotencyKey(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.PaymentID)
	response.Created(c, dto.MintResponse{
		Status:    string(result.Status),
		Amount:    money(result.Amount),
		PaymentID: result.PaymentID,
		WalletID:  result.WalletID,
		Balance:   money(result.Balance),
	})
}

// Burn handles POST /api/v1/burn.
func (h *LedgerHandler) Burn(c *gin.Context) {
	var req dto.BurnRequest
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

	result, err := h.ledger.Burn(c.Request.Context(), ports.BurnRequest{
		UserID:         userID,
		WalletID:       req.WalletID,
		Amount:         req.Amount,
		BankReference:  req.BankReference,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.PayoutID)
	response.Created(c, dto.BurnResponse{
		Status:   string(result.Status),
		Amount:   money(result.Amount),
		PayoutID: result.PayoutID,
		WalletID: result.WalletID,
		Balance:  money(result.Balance),
	})
}

// Transfer handles POST /api/v1/transfers.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
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

	result, err := h.ledger.Transfer(c.Request.Context(), ports.TransferRequest{
		UserID:             userID,
		WalletID:           req.WalletID,
		Amount:             req.Amount,
		DestinationAddress: req.DestinationAddress,
		IdempotencyKey:     idempotencyKey(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.TransferID)
	response.Created(c, dto.TransferResponse{
		Status:          string(result.Status),
		Amount:          money(result.Amount),
		TransferID:      result.TransferID,
		TransactionHash: result.TransactionHash,
		WalletID:        result.WalletID,
		Balance:         money(result.Balance),
		Internal:        result.Internal,
	})
}
