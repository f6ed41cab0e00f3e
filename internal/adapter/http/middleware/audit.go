package middleware

import (
	"net/http"

	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuditLog records successful ledger writes after the handler has run.
// Handlers name the affected resource via CtxResourceID.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		if c.Request.Method != http.MethodPost {
			return
		}

		action, resourceType := mapPathToAction(c.FullPath())
		if action == "" {
			return
		}

		var userID *string
		if id, ok := AuthenticatedUser(c); ok {
			userID = &id
		}

		auditSvc.Log(c.Request.Context(), ports.AuditEntry{
			UserID:       userID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxResourceID),
			Details: map[string]any{
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"status":     status,
				"request_id": c.GetString(response.RequestIDKey),
			},
			IPAddress: c.ClientIP(),
		})
	}
}

var ledgerRoutes = map[string]domain.TransactionType{
	"/api/v1/mint":      domain.TransactionTypeMint,
	"/api/v1/burn":      domain.TransactionTypeBurn,
	"/api/v1/transfers": domain.TransactionTypeTransfer,
}

func mapPathToAction(route string) (domain.AuditAction, domain.AuditResource) {
	if op, ok := ledgerRoutes[route]; ok {
		return domain.AuditActionFor(op), domain.AuditResourceTransaction
	}
	switch route {
	case "/api/v1/wallets":
		return domain.AuditActionCreateWallet, domain.AuditResourceWallet
	case "/api/v1/webhooks/settlement":
		return domain.AuditActionWebhook, domain.AuditResourceWebhookEvent
	}
	return "", ""
}
