package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"custodial-ledger/internal/adapter/http/middleware"
	"custodial-ledger/internal/core/domain"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/internal/core/ports/mocks"
	"custodial-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["error_code"].(string)
	return code
}

// --- Wallet Handler Tests ---

func TestCreateWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockWalletRegistry(ctrl)
	h := NewWalletHandler(registry, mocks.NewMockLedgerService(ctrl))

	registry.EXPECT().CreateOrGet(gomock.Any(), ports.CreateWalletRequest{
		UserID:   "alice",
		Type:     domain.WalletTypeEnterprise,
		Metadata: map[string]any{"tier": "gold"},
	}).Return(&domain.Wallet{
		ID:       "wallet_1",
		UserID:   "alice",
		Type:     domain.WalletTypeEnterprise,
		Address:  "0xabc",
		Balance:  decimal.NewFromInt(1000),
		Currency: domain.CurrencyUSDC,
		Metadata: map[string]any{"tier": "gold"},
	}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/wallets", `{"user_id":"alice","type":"Enterprise","metadata":{"tier":"gold"}}`)
	h.CreateWallet(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "wallet_1", data["id"])
	assert.Equal(t, "enterprise", data["type"])
	assert.Equal(t, "1000.00", data["balance"])
	assert.Equal(t, "USDC", data["currency"])
	assert.Equal(t, "wallet_1", c.GetString(middleware.CtxResourceID))
}

func TestCreateWallet_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"unknown type", `{"user_id":"alice","type":"custodian"}`},
		{"missing user", `{"type":"consumer"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			h := NewWalletHandler(mocks.NewMockWalletRegistry(ctrl), mocks.NewMockLedgerService(ctrl))

			c, w := newContext(http.MethodPost, "/api/v1/wallets", tt.body)
			h.CreateWallet(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VAL_001", decodeErrorCode(t, w))
		})
	}
}

func TestCreateWallet_AuthenticatedUserOverridesBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockWalletRegistry(ctrl)
	h := NewWalletHandler(registry, mocks.NewMockLedgerService(ctrl))

	registry.EXPECT().CreateOrGet(gomock.Any(), ports.CreateWalletRequest{UserID: "bob"}).
		Return(&domain.Wallet{ID: "wallet_b", UserID: "bob", Type: domain.WalletTypeConsumer}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/wallets", `{"user_id":"alice"}`)
	c.Set(middleware.CtxUserID, "bob")
	h.CreateWallet(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob", decodeData(t, w)["user_id"])
}

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mocks.NewMockWalletRegistry(ctrl), ledger)

	ledger.EXPECT().GetBalance(gomock.Any(), "wallet_1").Return(&ports.BalanceResult{
		WalletID: "wallet_1",
		Balance:  decimal.RequireFromString("987.5"),
		Currency: domain.CurrencyUSDC,
		Balances: []ports.CurrencyBalance{{Currency: domain.CurrencyUSDC, Amount: decimal.RequireFromString("987.5")}},
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/wallets/wallet_1/balance", "")
	c.Params = gin.Params{{Key: "walletId", Value: "wallet_1"}}
	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "987.50", data["balance"])
	balances := data["balances"].([]any)
	require.Len(t, balances, 1)
	assert.Equal(t, "987.50", balances[0].(map[string]any)["amount"])
}

func TestGetBalance_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mocks.NewMockWalletRegistry(ctrl), ledger)

	ledger.EXPECT().GetBalance(gomock.Any(), "missing").Return(nil, apperror.ErrWalletNotFound())

	c, w := newContext(http.MethodGet, "/", "")
	c.Params = gin.Params{{Key: "walletId", Value: "missing"}}
	h.GetBalance(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PAY_004", decodeErrorCode(t, w))
}

func TestGetBalance_ForeignWalletHiddenWhenAuthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockWalletRegistry(ctrl)
	h := NewWalletHandler(registry, mocks.NewMockLedgerService(ctrl))

	registry.EXPECT().GetByID(gomock.Any(), "wallet_a").Return(&domain.Wallet{ID: "wallet_a", UserID: "alice"}, nil)

	c, w := newContext(http.MethodGet, "/", "")
	c.Params = gin.Params{{Key: "walletId", Value: "wallet_a"}}
	c.Set(middleware.CtxUserID, "mallory")
	h.GetBalance(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReconcile_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mocks.NewMockWalletRegistry(ctrl), ledger)

	ledger.EXPECT().Reconcile(gomock.Any(), "wallet_1").Return(&ports.Reconciliation{
		WalletID:        "wallet_1",
		Balance:         decimal.NewFromInt(960),
		InitialBalance:  decimal.NewFromInt(1000),
		PendingNet:      decimal.NewFromInt(-40),
		ExpectedBalance: decimal.NewFromInt(960),
		Consistent:      true,
	}, nil)

	c, w := newContext(http.MethodGet, "/", "")
	c.Params = gin.Params{{Key: "walletId", Value: "wallet_1"}}
	h.Reconcile(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "-40.00", data["pending_net"])
	assert.Equal(t, "0.00", data["drift"])
	assert.Equal(t, true, data["consistent"])
}

// --- Ledger Handler Tests ---

func TestMint_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(ledger)

	ledger.EXPECT().Mint(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.MintRequest) (*ports.MintResult, error) {
			assert.Equal(t, "alice", req.UserID)
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("12.5")))
			assert.Equal(t, "IBAN-1", req.BankReference)
			assert.Equal(t, "key-1", req.IdempotencyKey)
			return &ports.MintResult{
				Status:    domain.TransactionStatusConfirmed,
				Amount:    req.Amount,
				PaymentID: "payment_1",
				WalletID:  "wallet_1",
				Balance:   decimal.RequireFromString("1012.5"),
			}, nil
		})

	c, w := newContext(http.MethodPost, "/api/v1/mint", `{"user_id":"alice","amount":12.5,"bank_reference":" IBAN-1 "}`)
	c.Request.Header.Set(middleware.HeaderIdempotencyKey, "key-1")
	h.Mint(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "confirmed", data["status"])
	assert.Equal(t, "12.50", data["amount"])
	assert.Equal(t, "payment_1", data["payment_id"])
	assert.Equal(t, "1012.50", data["balance"])
}

func TestMint_InvalidAmountFromService(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(ledger)

	ledger.EXPECT().Mint(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInvalidAmount())

	c, w := newContext(http.MethodPost, "/api/v1/mint", `{"user_id":"alice","amount":"-5"}`)
	h.Mint(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "PAY_002", decodeErrorCode(t, w))
}

func TestMint_MalformedAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewLedgerHandler(mocks.NewMockLedgerService(ctrl))

	c, w := newContext(http.MethodPost, "/api/v1/mint", `{"user_id":"alice","amount":"ten"}`)
	h.Mint(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", decodeErrorCode(t, w))
}

func TestBurn_InsufficientBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(ledger)

	ledger.EXPECT().Burn(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientBalance("1500.00", "1000.00"))

	c, w := newContext(http.MethodPost, "/api/v1/burn", `{"user_id":"alice","wallet_id":"wallet_1","amount":"1500"}`)
	h.Burn(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PAY_001", resp["error_code"])
	details := resp["details"].(map[string]any)
	assert.Equal(t, "1500.00", details["attempted"])
	assert.Equal(t, "1000.00", details["available"])
}

func TestBurn_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(ledger)

	ledger.EXPECT().Burn(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.BurnRequest) (*ports.BurnResult, error) {
			assert.Equal(t, "wallet_1", req.WalletID)
			return &ports.BurnResult{
				Status:   domain.TransactionStatusPending,
				Amount:   req.Amount,
				PayoutID: "payout_1",
				WalletID: req.WalletID,
				Balance:  decimal.NewFromInt(900),
			}, nil
		})

	c, w := newContext(http.MethodPost, "/api/v1/burn", `{"user_id":"alice","wallet_id":"wallet_1","amount":"100"}`)
	h.Burn(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "payout_1", data["payout_id"])
	assert.Equal(t, "900.00", data["balance"])
	assert.Equal(t, "payout_1", c.GetString(middleware.CtxResourceID))
}

func TestBurn_MissingWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewLedgerHandler(mocks.NewMockLedgerService(ctrl))

	c, w := newContext(http.MethodPost, "/api/v1/burn", `{"user_id":"alice","amount":"1"}`)
	h.Burn(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(ledger)

	ledger.EXPECT().Transfer(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
			assert.Equal(t, "0xdest", req.DestinationAddress)
			return &ports.TransferResult{
				Status:          domain.TransactionStatusConfirmed,
				Amount:          req.Amount,
				TransferID:      "transfer_1",
				TransactionHash: "0xhash",
				WalletID:        req.WalletID,
				Balance:         decimal.NewFromInt(950),
				Internal:        true,
			}, nil
		})

	c, w := newContext(http.MethodPost, "/api/v1/transfers", `{"user_id":"alice","wallet_id":"wallet_1","amount":"50","destination_address":"0xdest"}`)
	h.Transfer(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "transfer_1", data["transfer_id"])
	assert.Equal(t, "0xhash", data["transaction_hash"])
	assert.Equal(t, true, data["internal"])
}

func TestTransfer_IdempotencyConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(ledger)

	ledger.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrIdempotencyConflict())

	c, w := newContext(http.MethodPost, "/api/v1/transfers", `{"user_id":"alice","wallet_id":"wallet_1","amount":"50","destination_address":"0xdest"}`)
	c.Request.Header.Set(middleware.HeaderIdempotencyKey, "k")
	h.Transfer(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PAY_003", decodeErrorCode(t, w))
}

// --- Fee Handler Tests ---

func TestEstimate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	fees := mocks.NewMockFeeEstimator(ctrl)
	h := NewFeeHandler(fees)

	fees.EXPECT().Estimate(domain.TransactionTypeTransfer, gomock.Any(), "sol").
		Return(&domain.FeeQuote{
			Operation: domain.TransactionTypeTransfer,
			Amount:    decimal.NewFromInt(100),
			Fee:       decimal.NewFromInt(1),
			Total:     decimal.NewFromInt(101),
			Chain:     "SOL",
			Currency:  domain.CurrencyUSDC,
		}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/fees/estimate?operation=TRANSFER&amount=100&chain=sol", "")
	h.Estimate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "1.00", data["fee"])
	assert.Equal(t, "101.00", data["total"])
	assert.Equal(t, "SOL", data["chain"])
}

func TestEstimate_BadInput(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantCode string
	}{
		{"missing operation", "/api/v1/fees/estimate?amount=1", "VAL_001"},
		{"missing amount", "/api/v1/fees/estimate?operation=mint", "VAL_001"},
		{"amount not a number", "/api/v1/fees/estimate?operation=mint&amount=abc", "PAY_002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			h := NewFeeHandler(mocks.NewMockFeeEstimator(ctrl))

			c, w := newContext(http.MethodGet, tt.target, "")
			h.Estimate(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decodeErrorCode(t, w))
		})
	}
}

// --- Transaction Handler Tests ---

func TestListTransactions_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	journal := mocks.NewMockTransactionJournal(ctrl)
	h := NewTransactionHandler(journal)

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	journal.EXPECT().Query(gomock.Any(), ports.TransactionQuery{UserID: "alice", Limit: 2, Offset: 2, AsOf: 7}).
		Return(&ports.TransactionPage{
			Transactions: []domain.Transaction{
				{ID: "payment_3", Seq: 3, Type: domain.TransactionTypeMint, Direction: domain.DirectionCredit,
					Amount: decimal.NewFromInt(3), Status: domain.TransactionStatusConfirmed, CreatedAt: created, UpdatedAt: created},
				{ID: "payment_2", Seq: 2, Type: domain.TransactionTypeMint, Direction: domain.DirectionCredit,
					Amount: decimal.NewFromInt(2), Status: domain.TransactionStatusConfirmed, CreatedAt: created, UpdatedAt: created},
			},
			Total: 5,
			AsOf:  7,
		}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/transactions?user_id=alice&limit=2&offset=2&as_of=7", "")
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.EqualValues(t, 5, data["total"])
	assert.EqualValues(t, 7, data["as_of"])
	assert.EqualValues(t, 2, data["offset"])
	items := data["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "payment_3", first["id"])
	assert.Equal(t, "3.00", first["amount"])
	assert.Equal(t, "credit", first["direction"])
	assert.Equal(t, "2025-01-02T03:04:05Z", first["created_at"])
}

func TestListTransactions_EmptyPageRendersEmptyArray(t *testing.T) {
	ctrl := gomock.NewController(t)
	journal := mocks.NewMockTransactionJournal(ctrl)
	h := NewTransactionHandler(journal)

	journal.EXPECT().Query(gomock.Any(), gomock.Any()).Return(&ports.TransactionPage{Transactions: []domain.Transaction{}}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/transactions?user_id=ghost", "")
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
}

func TestListTransactions_BadQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewTransactionHandler(mocks.NewMockTransactionJournal(ctrl))

	c, w := newContext(http.MethodGet, "/api/v1/transactions?user_id=alice&limit=many", "")
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newContext(http.MethodGet, "/api/v1/transactions", "")
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Webhook Handler Tests ---

func TestSettlementWebhook_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingestor := mocks.NewMockWebhookIngestor(ctrl)
	h := NewWebhookHandler(ingestor)

	body := `{"id":"evt_1","type":"payouts","data":{"id":"payout_1","status":"completed"}}`
	ingestor.EXPECT().HandleWebhook(gomock.Any(), []byte(body), "sig").
		Return(&ports.WebhookResult{Processed: true, Applied: true, TransactionID: "payout_1"}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/webhooks/settlement", body)
	c.Request.Header.Set(middleware.HeaderWebhookSignature, "sig")
	h.Settlement(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, true, data["processed"])
	assert.Equal(t, true, data["applied"])
	assert.Equal(t, false, data["duplicate"])
	assert.Equal(t, "payout_1", data["transaction_id"])
}

func TestSettlementWebhook_BadSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingestor := mocks.NewMockWebhookIngestor(ctrl)
	h := NewWebhookHandler(ingestor)

	ingestor.EXPECT().HandleWebhook(gomock.Any(), gomock.Any(), "").Return(nil, apperror.ErrSignatureInvalid())

	c, w := newContext(http.MethodPost, "/api/v1/webhooks/settlement", `{}`)
	h.Settlement(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SEC_001", decodeErrorCode(t, w))
}

// --- Health Check Tests ---

type stubChecker struct {
	name     string
	required bool
	err      error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }
func (s stubChecker) Required() bool             { return s.required }

func TestHealthCheck(t *testing.T) {
	pg := stubChecker{name: "postgresql", required: true}
	pgDown := stubChecker{name: "postgresql", required: true, err: errors.New("refused")}
	rdb := stubChecker{name: "redis"}
	rdbDown := stubChecker{name: "redis", err: errors.New("refused")}

	tests := []struct {
		name       string
		checkers   []ports.HealthChecker
		wantStatus int
		wantState  string
	}{
		{"no dependencies", nil, http.StatusOK, "healthy"},
		{"all healthy", []ports.HealthChecker{pg, rdb}, http.StatusOK, "healthy"},
		{"redis down", []ports.HealthChecker{pg, rdbDown}, http.StatusOK, "degraded"},
		{"postgres down", []ports.HealthChecker{pgDown, rdb}, http.StatusServiceUnavailable, "unhealthy"},
		{"both down", []ports.HealthChecker{pgDown, rdbDown}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", HealthCheck("v1.2.3", tt.checkers...))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantState, resp["status"])
			assert.Equal(t, "v1.2.3", resp["version"])

			deps, ok := resp["dependencies"].(map[string]any)
			require.True(t, ok)
			assert.Len(t, deps, len(tt.checkers))
			if tt.wantState != "healthy" {
				assert.True(t, strings.Contains(w.Body.String(), "refused"))
			}
		})
	}
}
