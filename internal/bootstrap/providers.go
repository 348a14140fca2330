package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"toolprice-service/internal/application"
	"toolprice-service/internal/config"
	"toolprice-service/internal/domain"
	infraconfig "toolprice-service/internal/infrastructure/config"
	httpserver "toolprice-service/internal/infrastructure/http"
	"toolprice-service/internal/infrastructure/httpx"
	"toolprice-service/internal/infrastructure/logx"
	"toolprice-service/internal/infrastructure/payment"
	"toolprice-service/internal/infrastructure/pg"
	"toolprice-service/internal/infrastructure/provider"
	redisstore "toolprice-service/internal/infrastructure/redis"
	"toolprice-service/internal/infrastructure/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required")

type Repos struct {
	Tools     application.ToolRepo
	Personal  application.PersonalPriceRepo
	Purchases application.PurchaseRepo
	Access    application.AccessRepo
	UoW       application.UnitOfWork
}

func ProvideLogger() *zap.Logger { return logx.L() }

func ProvideConfig() config.Config { return config.Load() }

func ProvideDB(ctx context.Context, log *zap.Logger, cfg config.Config) (*pg.DB, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, func() {}, ErrMissingDBURL
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return db, cleanup, nil
}

func ProvideRepos(db *pg.DB) Repos {
	return Repos{
		Tools:     pg.NewToolRepo(db),
		Personal:  pg.NewPersonalPriceRepo(db),
		Purchases: pg.NewPurchaseRepo(db),
		Access:    pg.NewAccessRepo(db),
		UoW:       &pg.UnitOfWork{Pool: db.Pool},
	}
}

// ProvideIdempotency returns the redis store, or a no-op store when
// IDEMPOTENCY_BACKEND is not "redis".
func ProvideIdempotency(cfg config.Config) (application.IdempotencyStore, func(), error) {
	if cfg.IdempotencyBackend != "redis" {
		return application.NoopIdempotency{}, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return redisstore.New(client, cfg.RedisTTL), func() { _ = client.Close() }, nil
}

func outboundClient(log *zap.Logger) *httpx.Client {
	return &httpx.Client{
		HTTP: &http.Client{Timeout: infraconfig.DefaultOutboundTimeout},
		Log:  log,
	}
}

func ProvideRateProvider(cfg config.Config, log *zap.Logger) (application.RateProvider, error) {
	switch cfg.RateProvider {
	case "cbr", "":
		return &provider.CBRProvider{URL: cfg.RateSourceURL, Client: outboundClient(log)}, nil
	case "exchangeratesapi":
		return &provider.ExchangeRatesAPIProvider{
			BaseURL: cfg.ExchangeAPIBase,
			APIKey:  cfg.ExchangeAPIKey,
			Client:  outboundClient(log),
		}, nil
	case "fake":
		return provider.NewFake(cfg.RateFallback), nil
	default:
		return nil, fmt.Errorf("unsupported RATE_PROVIDER=%q", cfg.RateProvider)
	}
}

func ProvideRateCache(rp application.RateProvider, cfg config.Config, log *zap.Logger) *application.RateCache {
	return application.NewRateCache(rp,
		application.WithRateTTL(cfg.RateTTL),
		application.WithFallbackRate(cfg.RateFallback),
		application.WithCoalescing(cfg.RateCoalesce),
		application.WithRateLogger(log),
	)
}

func ProvidePaymentGateway(cfg config.Config, log *zap.Logger) *payment.YooKassa {
	return &payment.YooKassa{
		BaseURL:   cfg.PaymentGatewayBase,
		ShopID:    cfg.ShopID,
		SecretKey: cfg.SecretKey,
		Client:    outboundClient(log),
		Log:       log,
	}
}

func ProvidePricingService(r Repos, rates application.RateSource, cfg config.Config, log *zap.Logger) *application.PricingService {
	params := domain.DefaultPriceParams()
	if cfg.PriceDeltaRate >= 0 {
		params.DeltaRate = cfg.PriceDeltaRate
	}
	if cfg.PriceFixedFee >= 0 {
		params.FixedFee = cfg.PriceFixedFee
	}
	return application.NewPricingService(r.Tools, r.Personal, rates,
		application.WithPriceParams(params),
		application.WithPricingLogger(log),
	)
}

func ProvidePaymentService(r Repos, gw application.PaymentGateway, prices application.PriceResolver, log *zap.Logger) *application.PaymentService {
	return application.NewPaymentService(gw, r.Purchases, r.Access, prices,
		application.WithUnitOfWork(r.UoW),
		application.WithPaymentLogger(log),
	)
}

func ProvideHTTPServer(
	pricing *application.PricingService,
	payments *application.PaymentService,
	rates application.RateSource,
	idem application.IdempotencyStore,
	db *pg.DB,
	cfg config.Config,
) (*httpserver.Server, error) {
	limiter, err := httpserver.NewWriteLimiter(cfg.WriteRateLimit)
	if err != nil {
		return nil, fmt.Errorf("WRITE_RATE_LIMIT: %w", err)
	}
	return httpserver.NewServer(pricing, payments, rates,
		httpserver.WithIdempotency(idem),
		httpserver.WithReadyCheck(db.Ping),
		httpserver.WithJWTSecret(cfg.JWTSecret),
		httpserver.WithWriteLimiter(limiter),
		httpserver.WithRequestTimeout(cfg.RequestTimeout),
	), nil
}

func ProvideWorker(r Repos, payments *application.PaymentService, log *zap.Logger, cfg config.Config) application.Worker {
	poll := cfg.WorkerPoll
	if poll <= 0 {
		poll = infraconfig.DefaultWorkerPoll
	}
	batch := cfg.WorkerBatchSize
	if batch <= 0 {
		batch = infraconfig.DefaultWorkerBatch
	}
	return &worker.ReconcileWorker{
		Purchases:    r.Purchases,
		Reconciler:   payments,
		PollEvery:    poll,
		BatchLimit:   batch,
		RecheckAfter: cfg.RecheckAfter,
		Log:          log,
	}
}
