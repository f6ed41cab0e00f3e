package handler

import (
	"io"

	"custodial-ledger/internal/adapter/http/dto"
	"custodial-ledger/internal/adapter/http/middleware"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives settlement notifications.
type WebhookHandler struct {
	ingestor ports.WebhookIngestor
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(ingestor ports.WebhookIngestor) *WebhookHandler {
	return &WebhookHandler{ingestor: ingestor}
}

// Settlement handles POST /api/v1/webhooks/settlement. The signature covers
// the raw body, so it is read before any decoding.
func (h *WebhookHandler) Settlement(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, middleware.BodyError(err))
		return
	}

	result, err := h.ingestor.HandleWebhook(c.Request.Context(), payload, c.GetHeader(middleware.HeaderWebhookSignature))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.TransactionID)
	response.OK(c, dto.WebhookResponse{
		Processed:     result.Processed,
		Applied:       result.Applied,
		Duplicate:     result.Duplicate,
		TransactionID: result.TransactionID,
	})
}
