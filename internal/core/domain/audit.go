package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction is the ledger write an audit entry records.
type AuditAction string

const (
	AuditActionCreateWallet AuditAction = "CREATE_WALLET"
	AuditActionMint         AuditAction = "MINT"
	AuditActionBurn         AuditAction = "BURN"
	AuditActionTransfer     AuditAction = "TRANSFER"
	AuditActionWebhook      AuditAction = "WEBHOOK"
)

// AuditResource is the kind of record ResourceID points at.
type AuditResource string

const (
	AuditResourceWallet       AuditResource = "wallet"
	AuditResourceTransaction  AuditResource = "transaction"
	AuditResourceWebhookEvent AuditResource = "webhook_event"
)

// AuditActionFor returns the action recorded for a balance mutation, or ""
// for an unknown operation.
func AuditActionFor(op TransactionType) AuditAction {
	switch op {
	case TransactionTypeMint:
		return AuditActionMint
	case TransactionTypeBurn:
		return AuditActionBurn
	case TransactionTypeTransfer:
		return AuditActionTransfer
	}
	return ""
}

// AuditLog is an append-only record of who changed what. It is never read
// back by the ledger itself.
type AuditLog struct {
	ID           uuid.UUID       `json:"id"`
	UserID       *string         `json:"user_id,omitempty"` // nil when auth is disabled
	Action       AuditAction     `json:"action"`
	ResourceType AuditResource   `json:"resource_type"`
	ResourceID   string          `json:"resource_id,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	IPAddress    string          `json:"ip_address"`
	CreatedAt    time.Time       `json:"created_at"`
}
