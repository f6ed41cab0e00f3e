package handler

import (
	"custodial-ledger/internal/adapter/http/middleware"
	"custodial-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Registry       ports.WalletRegistry
	Ledger         ports.LedgerService
	Journal        ports.TransactionJournal
	Fees           ports.FeeEstimator
	Webhooks       ports.WebhookIngestor
	TokenSvc       ports.TokenService        // nil = bearer auth disabled, user_id taken from the request
	RateLimitStore middleware.RateLimitStore // nil = rate limiting disabled
	AuditSvc       ports.AuditService        // nil = audit logging disabled
	HealthCheckers []ports.HealthChecker
	Version        string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20))

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.Version, deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// Signed by the settlement provider, never by users.
	webhookHandler := NewWebhookHandler(deps.Webhooks)
	v1.POST("/webhooks/settlement", rl("webhooks"), webhookHandler.Settlement)

	feeHandler := NewFeeHandler(deps.Fees)
	v1.GET("/fees/estimate", rl("fees"), feeHandler.Estimate)

	api := v1.Group("")
	if deps.TokenSvc != nil {
		api.Use(middleware.JWTAuth(deps.TokenSvc, deps.Logger))
	}

	walletHandler := NewWalletHandler(deps.Registry, deps.Ledger)
	wallets := api.Group("/wallets")
	{
		wallets.POST("", middleware.RequireJSON(), rl("wallets"), walletHandler.CreateWallet)
		wallets.GET("/:walletId/balance", rl("reads"), walletHandler.GetBalance)
		wallets.GET("/:walletId/reconciliation", rl("reads"), walletHandler.Reconcile)
	}

	ledgerHandler := NewLedgerHandler(deps.Ledger)
	api.POST("/mint", middleware.RequireJSON(), rl("ledger"), ledgerHandler.Mint)
	api.POST("/burn", middleware.RequireJSON(), rl("ledger"), ledgerHandler.Burn)
	api.POST("/transfers", middleware.RequireJSON(), rl("ledger"), ledgerHandler.Transfer)

	transactionHandler := NewTransactionHandler(deps.Journal)
	api.GET("/transactions", rl("reads"), transactionHandler.List)

	return r
}
