package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"earntracker/internal/backend"
	"earntracker/internal/cache"
	"earntracker/internal/cli"
	apphttp "earntracker/internal/http"
	"earntracker/internal/log"
	"earntracker/internal/rates"
	"earntracker/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(nil, log.ComponentApp))
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	infra, err := backend.NewFactory(logger).Create(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}

	rateCache := cache.NewLRUCache[decimal.Decimal](cfg.RatesCacheSize, cfg.RatesCacheTTL)
	caches := cache.NewManager()
	caches.Register(rateCache)
	caches.StartCleanup(10 * time.Minute)

	nbu := rates.NewNBUClient(cfg.RatesURL, cfg.BaseCurrency,
		rates.WithCache(rateCache),
		rates.WithLogger(logger))

	store := infra.Store
	pub := infra.Publisher()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Users:              services.NewUserService(store, cfg.JWTSecret, cfg.TokenTTL),
		Incomes:            services.NewIncomeService(store, nbu, cfg.BaseCurrency, pub),
		Taxes:              services.NewTaxService(store, pub),
		Rules:              services.NewRuleService(store, pub),
		Events:             services.NewEventService(store),
		Rates:              nbu,
		Store:              store,
		Logger:             logger,
		BaseCurrency:       cfg.BaseCurrency,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if err := infra.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting earntracker server",
		"port", cfg.Port,
		"reports", backendConfig.Reports.String(),
		"amqp_enabled", infra.Bus != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
