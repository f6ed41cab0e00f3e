package domain

import (
	"strings"
	"time"
)

// WebhookPayload is the settlement notification body.
type WebhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// WebhookEvent records a processed notification; ID is the provider event id.
type WebhookEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ResourceID string    `json:"resource_id"`
	Status     string    `json:"status"`
	Applied    bool      `json:"applied"`
	ReceivedAt time.Time `json:"received_at"`
}

// ParseSettlementStatus maps provider status vocabulary onto journal statuses.
func ParseSettlementStatus(s string) (TransactionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "confirmed", "complete", "completed", "paid", "success":
		return TransactionStatusConfirmed, true
	case "failed", "rejected", "returned":
		return TransactionStatusFailed, true
	case "pending":
		return TransactionStatusPending, true
	}
	return "", false
}

// ParseEventType maps a webhook event type onto the transaction type it concerns.
// An empty type matches any transaction.
func ParseEventType(s string) (TransactionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", true
	case "payments", "payment", "mint":
		return TransactionTypeMint, true
	case "payouts", "payout", "burn":
		return TransactionTypeBurn, true
	case "transfers", "transfer":
		return TransactionTypeTransfer, true
	}
	return "", false
}
