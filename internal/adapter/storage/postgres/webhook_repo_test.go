package postgres

import (
	"context"
	"testing"
	"time"

	"custodial-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookEventRepo_Exists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("evt_1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := NewWebhookEventRepo(mock).Exists(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEventRepo_Record(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"first delivery", 1, true},
		{"duplicate delivery", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			event := &domain.WebhookEvent{
				ID:         "evt_1",
				Type:       "payouts",
				ResourceID: "payout_1",
				Status:     "completed",
				Applied:    true,
				ReceivedAt: time.Now().UTC(),
			}

			mock.ExpectExec("INSERT INTO webhook_events .+ ON CONFLICT \\(id\\) DO NOTHING").
				WithArgs(event.ID, event.Type, event.ResourceID, event.Status, true, event.ReceivedAt).
				WillReturnResult(pgxmock.NewResult("INSERT", tt.affected))

			recorded, err := NewWebhookEventRepo(mock).Record(context.Background(), event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, recorded)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := "alice"
	log := &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       &userID,
		Action:       domain.AuditActionMint,
		ResourceType: "transaction",
		ResourceID:   "payment_1",
		Details:      []byte(`{"amount":"10.00"}`),
		IPAddress:    "10.0.0.1",
		CreatedAt:    time.Now().UTC(),
	}

	details := `{"amount":"10.00"}`
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(log.ID, log.UserID, "MINT", "transaction", "payment_1",
			&details, "10.0.0.1", log.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewAuditRepo(mock).Create(context.Background(), log))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create_EmptyDetailsStoredAsNull(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	log := &domain.AuditLog{
		ID:           uuid.New(),
		Action:       domain.AuditActionCreateWallet,
		ResourceType: domain.AuditResourceWallet,
		ResourceID:   "wallet_1",
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(log.ID, (*string)(nil), "CREATE_WALLET", "wallet", "wallet_1",
			(*string)(nil), "", log.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewAuditRepo(mock).Create(context.Background(), log))
	assert.NoError(t, mock.ExpectationsWereMet())
}
