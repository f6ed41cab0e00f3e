package handler

import (
	"custodial-ledger/internal/adapter/http/dto"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/pkg/apperror"
	"custodial-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransactionHandler serves journal queries.
type TransactionHandler struct {
	journal ports.TransactionJournal
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(journal ports.TransactionJournal) *TransactionHandler {
	return &TransactionHandler{journal: journal}
}

// List handles GET /api/v1/transactions. Pass the returned as_of back to
// page through a fixed snapshot.
func (h *TransactionHandler) List(c *gin.Context) {
	var q dto.TransactionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	userID, err := resolveUserID(c, q.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, err := h.journal.Query(c.Request.Context(), ports.TransactionQuery{
		UserID: userID,
		Limit:  q.Limit,
		Offset: q.Offset,
		AsOf:   q.AsOf,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(page.Transactions))
	for _, t := range page.Transactions {
		items = append(items, toTransactionResponse(t))
	}

	response.OK(c, dto.TransactionListResponse{
		Items:  items,
		Total:  page.Total,
		Offset: max(q.Offset, 0),
		AsOf:   page.AsOf,
	})
}
