package app

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "parkpay/backend/libs/redis"
	"parkpay/backend/services/payment-service/internal/auth"
	"parkpay/backend/services/payment-service/internal/clients"
	"parkpay/backend/services/payment-service/internal/config"
	"parkpay/backend/services/payment-service/internal/db"
	httpserver "parkpay/backend/services/payment-service/internal/http"
	"parkpay/backend/services/payment-service/internal/http/handlers"
	"parkpay/backend/services/payment-service/internal/http/middleware"
	"parkpay/backend/services/payment-service/internal/metrics"
	redisstore "parkpay/backend/services/payment-service/internal/redis"
	"parkpay/backend/services/payment-service/internal/repository"
	"parkpay/backend/services/payment-service/internal/service"
	"parkpay/backend/services/payment-service/internal/ws"
)

// App wires payment service dependencies.
type App struct {
	server      *httpserver.Server
	gateServer  *ws.Server
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	var (
		redisClient *redis.Client
		planCache   *redisstore.PlanCache
	)
	if cfg.Redis.Addr != "" && cfg.Plan.CacheTTL > 0 {
		redisClient, err = libredis.NewRedisClient(libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			sqlDB.Close()
			return nil, err
		}
		planCache = redisstore.NewPlanCache(redisClient, cfg.Plan.CacheTTL)
	}

	m := metrics.New()
	plans := newPlanChecker(cfg, planCache, m, logger)

	rate, minimum, maximum, err := cfg.FeeSchedule()
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	fees := service.FeeSchedule{RatePerMinute: rate, Minimum: minimum, Maximum: maximum}

	sessionRepo := repository.NewSessionRepository(sqlDB)
	paymentRepo := repository.NewPaymentRepository(sqlDB)

	gateFeed := ws.NewManager(m, logger)
	gateServer := ws.NewServer(gateFeed, cfg.GateFeed.WriteTimeout, logger)
	settlementService := service.NewSettlementService(
		plans,
		service.NewSessionResolver(sessionRepo),
		paymentRepo,
		fees,
		logger,
		service.WithPublisher(gateFeed),
		service.WithObserver(m),
	)
	historyService := service.NewHistoryService(paymentRepo)

	paymentsHandler := handlers.NewPaymentsHandler(settlementService, historyService, logger)
	var invalidator handlers.PlanCacheInvalidator
	if planCache != nil {
		invalidator = planCache
	}

	routes := httpserver.Routes{
		Settle:        paymentsHandler.HandleSettle,
		PaymentStatus: paymentsHandler.HandleStatus,
		History:       handlers.NewHistoryHandler(historyService, logger),
		PlanChanged:   handlers.NewPlanChangedHandler(invalidator, logger),
		GateFeed:      gateServer.HandleWS,
		Health:        handlers.NewHealthHandler(),
		Metrics:       m.Handler(),
		Observer:      m,
	}
	if cfg.Auth.JWTSecret != "" {
		routes.APIAuth = middleware.Auth(auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))
	}

	router := httpserver.NewRouter(routes)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger,
		middleware.RequestLogger(logger),
		middleware.Recover(logger),
	)

	return &App{
		server:      server,
		gateServer:  gateServer,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

func newPlanChecker(cfg *config.Config, cache *redisstore.PlanCache, m *metrics.Metrics, logger *zap.Logger) service.PlanChecker {
	switch cfg.PlanOverride() {
	case config.PlanOverrideActive:
		logger.Warn("plan lookups overridden: every plate has an active plan")
		return clients.StaticPlanChecker{Active: true}
	case config.PlanOverrideInactive:
		logger.Warn("plan lookups overridden: no plate has an active plan")
		return clients.StaticPlanChecker{Active: false}
	}

	opts := []clients.PlanClientOption{clients.WithPlanObserver(m)}
	if cache != nil {
		opts = append(opts, clients.WithPlanCache(cache))
	}
	return clients.NewPlanClient(
		cfg.Plan.ServiceURL,
		clients.NewDefaultHTTPClient(cfg.Plan.Timeout),
		cfg.Plan.Timeout,
		logger,
		opts...,
	)
}

// Run starts HTTP server.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.gateServer != nil {
		a.gateServer.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
