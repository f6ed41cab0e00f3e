package domain

import (
	"time"
)

// IdempotencyLog stores the result of a mutating request under a caller-supplied key.
type IdempotencyLog struct {
	Key           string    `json:"key"` // Format: "user_id:operation:idempotency_key"
	TransactionID string    `json:"transaction_id"`
	RequestHash   string    `json:"request_hash"`
	ResponseJSON  []byte    `json:"response_json"`
	CreatedAt     time.Time `json:"created_at"`
}

// BuildIdempotencyKey scopes a caller key to a user and operation.
func BuildIdempotencyKey(userID string, op TransactionType, key string) string {
	return userID + ":" + string(op) + ":" + key
}
