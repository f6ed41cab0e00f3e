package handler

import (
	"strings"

	"custodial-ledger/internal/adapter/http/dto"
	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/pkg/apperror"
	"custodial-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// FeeHandler serves fee quotes.
type FeeHandler struct {
	fees ports.FeeEstimator
}

// NewFeeHandler creates a new FeeHandler.
func NewFeeHandler(fees ports.FeeEstimator) *FeeHandler {
	return &FeeHandler{fees: fees}
}

// Estimate handles GET /api/v1/fees/estimate.
func (h *FeeHandler) Estimate(c *gin.Context) {
	var q dto.FeeEstimateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(q.Amount))
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	op := domain.TransactionType(strings.ToLower(strings.TrimSpace(q.Operation)))
	quote, err := h.fees.Estimate(op, amount, strings.TrimSpace(q.Chain))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FeeQuoteResponse{
		Operation: string(quote.Operation),
		Amount:    money(quote.Amount),
		Fee:       money(quote.Fee),
		Total:     money(quote.Total),
		Chain:     quote.Chain,
		Currency:  quote.Currency,
	})
}
