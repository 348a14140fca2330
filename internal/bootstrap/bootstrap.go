package bootstrap

import (
	"context"

	"toolprice-service/internal/application"
	httpserver "toolprice-service/internal/infrastructure/http"
	"toolprice-service/internal/infrastructure/pg"

	"go.uber.org/zap"
)

// cleanups runs registered closers in reverse order.
type cleanups []func()

func (c *cleanups) add(fn func()) { *c = append(*c, fn) }

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

type core struct {
	log      *zap.Logger
	db       *pg.DB
	repos    Repos
	rates    *application.RateCache
	pricing  *application.PricingService
	payments *application.PaymentService
}

func initCore(ctx context.Context, cl *cleanups) (core, error) {
	log := ProvideLogger()
	cfg := ProvideConfig()

	db, closeDB, err := ProvideDB(ctx, log, cfg)
	if err != nil {
		return core{}, err
	}
	cl.add(closeDB)
	repos := ProvideRepos(db)

	rp, err := ProvideRateProvider(cfg, log)
	if err != nil {
		return core{}, err
	}
	rates := ProvideRateCache(rp, cfg, log)
	pricing := ProvidePricingService(repos, rates, cfg, log)
	payments := ProvidePaymentService(repos, ProvidePaymentGateway(cfg, log), pricing, log)

	return core{log: log, db: db, repos: repos, rates: rates, pricing: pricing, payments: payments}, nil
}

// InitAPI wires the HTTP server and everything behind it.
func InitAPI(ctx context.Context) (*httpserver.Server, func(), error) {
	var cl cleanups
	c, err := initCore(ctx, &cl)
	if err != nil {
		cl.run()
		return nil, func() {}, err
	}
	cfg := ProvideConfig()
	idem, closeIdem, err := ProvideIdempotency(cfg)
	if err != nil {
		cl.run()
		return nil, func() {}, err
	}
	cl.add(closeIdem)

	srv, err := ProvideHTTPServer(c.pricing, c.payments, c.rates, idem, c.db, cfg)
	if err != nil {
		cl.run()
		return nil, func() {}, err
	}
	return srv, cl.run, nil
}

// InitWorker wires the purchase reconciliation worker.
func InitWorker(ctx context.Context) (application.Worker, func(), error) {
	var cl cleanups
	c, err := initCore(ctx, &cl)
	if err != nil {
		cl.run()
		return nil, func() {}, err
	}
	return ProvideWorker(c.repos, c.payments, c.log, ProvideConfig()), cl.run, nil
}
