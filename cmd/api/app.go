package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"custodial-ledger/config"
	httpHandler "custodial-ledger/internal/adapter/http/handler"
	"custodial-ledger/internal/adapter/http/middleware"
	"custodial-ledger/internal/adapter/storage/memory"
	pgStorage "custodial-ledger/internal/adapter/storage/postgres"
	redisStorage "custodial-ledger/internal/adapter/storage/redis"
	"custodial-ledger/internal/core/ports"
	"custodial-ledger/internal/service"
	"custodial-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type app struct {
	srv *http.Server
}

// stores is the persistence wiring chosen by storage.driver.
type stores struct {
	wallets     ports.WalletRepository
	txns        ports.TransactionRepository
	idempotency ports.IdempotencyRepository
	events      ports.WebhookEventRepository
	audit       ports.AuditRepository
	transactor  ports.WalletTransactor
	health      []ports.HealthChecker
}

func setupApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (*app, func(), error) {
		cleanup()
		return nil, nil, err
	}

	st, closeStore, err := setupStores(ctx, cfg, log)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, closeStore)

	var (
		idempCache ports.IdempotencyCache = memory.NewIdempotencyCache()
		rateLimit  middleware.RateLimitStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fail(fmt.Errorf("connect redis: %w", err))
		}
		cleanups = append(cleanups, func() { _ = rdb.Close() })
		log.Info().Str("addr", cfg.Redis.Addr()).Msg("redis connected")

		idempCache = redisStorage.NewIdempotencyCache(rdb)
		rateLimit = redisStorage.NewRateLimitStore(rdb)
		st.health = append(st.health, redisStorage.NewHealthCheck(rdb))
	}

	seed, err := cfg.Ledger.Seed()
	if err != nil {
		return fail(err)
	}
	schedule, err := cfg.Fees.Schedule()
	if err != nil {
		return fail(err)
	}

	sigSvc := service.NewHMACSignatureService()
	var (
		provider ports.SettlementProvider
		ids      ports.IDGenerator
	)
	switch cfg.Settlement.Mode {
	case "real":
		provider = service.NewRealSettlementProvider(
			cfg.Settlement.WebhookSecret,
			cfg.Settlement.ProviderURL,
			sigSvc,
			&http.Client{Timeout: cfg.Settlement.Timeout},
			logger.Component(log, "settlement"),
		)
		ids = service.NewTypeIDGenerator()
	default:
		log.Warn().Msg("mock settlement: webhooks are not verified and transactions confirm immediately")
		provider = service.NewMockSettlementProvider()
		ids = service.NewMockIDGenerator()
	}

	registry := service.NewWalletRegistry(st.wallets, provider, ids, seed, cfg.Ledger.Currency,
		logger.Component(log, "registry"))
	ledger := service.NewLedgerService(registry, st.txns, st.idempotency, idempCache, st.transactor,
		provider, ids, cfg.Ledger.IdempotencyTTL, logger.Component(log, "ledger"))
	journal := service.NewJournalService(st.txns, st.wallets)
	fees := service.NewFeeEstimator(schedule, cfg.Ledger.Currency)
	webhooks := service.NewWebhookIngestor(provider, st.txns, st.events, logger.Component(log, "webhook"))
	auditSvc := service.NewAuditService(st.audit, logger.Component(log, "audit"))

	var tokenSvc ports.TokenService
	if cfg.Auth.JWTSecret != "" {
		tokenSvc = service.NewJWTTokenService(cfg.Auth.JWTSecret, time.Hour, cfg.Auth.JWTIssuer)
	} else {
		log.Warn().Msg("bearer auth disabled: user_id is taken from requests")
	}

	gin.SetMode(cfg.Server.Mode)
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Registry:       registry,
		Ledger:         ledger,
		Journal:        journal,
		Fees:           fees,
		Webhooks:       webhooks,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimit,
		AuditSvc:       auditSvc,
		HealthCheckers: st.health,
		Version:        version + "+" + commit,
		Logger:         logger.Component(log, "http"),
	})

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.HeaderIdempotencyKey, middleware.HeaderRequestID},
		ExposedHeaders: []string{middleware.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
	}).Handler(router)

	return &app{
		srv: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, cleanup, nil
}

func setupStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, func(), error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("memory storage: state is lost on restart")
		s := memory.NewStore()
		return &stores{
			wallets:     s.Wallets(),
			txns:        s.Transactions(),
			idempotency: s.Idempotency(),
			events:      s.WebhookEvents(),
			audit:       s.Audit(),
			transactor:  s.Transactor(),
			health:      []ports.HealthChecker{s},
		}, func() {}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(cfg.Database, log); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Info().Str("db", cfg.Database.DBName).Msg("postgresql connected")

	return &stores{
		wallets:     pgStorage.NewWalletRepo(pool),
		txns:        pgStorage.NewTransactionRepo(pool),
		idempotency: pgStorage.NewIdempotencyRepo(pool),
		events:      pgStorage.NewWebhookEventRepo(pool),
		audit:       pgStorage.NewAuditRepo(pool),
		transactor:  pgStorage.NewTransactor(pool),
		health:      []ports.HealthChecker{pgStorage.NewHealthCheck(pool)},
	}, pool.Close, nil
}
