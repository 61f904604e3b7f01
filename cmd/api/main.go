package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mrwiat/internal/billing"
	"mrwiat/internal/bootstrap"
	"mrwiat/internal/http/handlers"
	httpapi "mrwiat/internal/http/httpapi"
	"mrwiat/internal/infra"
	"mrwiat/internal/middleware"
	"mrwiat/internal/redeem"
	"mrwiat/internal/wallet"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	if err := cfg.RequireAuth(); err != nil {
		logger.Fatal().Err(err).Msg("api: auth not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to open store")
	}
	defer backend.Close()

	cache, closeCache, err := bootstrap.NewJobCache(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to connect redis")
	}
	defer closeCache()

	renderer, err := bootstrap.NewRenderer(ctx, cfg, backend, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure renderer client")
	}

	prices, err := billing.ParsePriceTable(cfg.VideoPriceTiers)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: invalid VIDEO_PRICE_TIERS")
	}

	tr := bootstrap.NewTracker(ctx, cfg, renderer, backend.Jobs(), cache, logger)
	walletSvc := wallet.NewService(backend.Ledger(), &logger)
	app := &handlers.App{
		Wallet: walletSvc,
		Redeem: redeem.NewService(backend.Vouchers(), redeem.Options{Prefixes: cfg.VoucherPrefixes, Logger: &logger}),
		Billing: billing.NewOrchestrator(walletSvc, renderer, backend.Jobs(), tr, billing.Options{
			Prices:                prices,
			RefundOnSubmitFailure: cfg.RefundOnSubmitFailure,
			Logger:                &logger,
		}),
		Jobs:   tr,
		Store:  backend,
		Logger: logger,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger: logger,
		Auth: middleware.AuthConfig{
			BotToken:     cfg.TelegramBotToken,
			ServiceToken: cfg.ServiceToken,
			MaxAge:       cfg.TelegramAuthMaxAge,
		},
		AllowedOrigins:  cfg.AllowedOrigins,
		RedeemPerMinute: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router, logger)
	logger.Info().Str("store", backend.Driver).Str("port", cfg.Port).Msg("api starting")
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	stop()
	tr.Wait()
	logger.Info().Msg("server stopped")
}
