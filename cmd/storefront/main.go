package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jcmexdev/storefront/internal/checkout/checkoutlog"
	checkoutsqlite "github.com/jcmexdev/storefront/internal/checkout/checkoutlog/sqlite"
	"github.com/jcmexdev/storefront/internal/httpx"
	"github.com/jcmexdev/storefront/internal/pkg/cache"
	"github.com/jcmexdev/storefront/internal/pkg/config"
	"github.com/jcmexdev/storefront/internal/pkg/telemetry"
	"github.com/jcmexdev/storefront/internal/session"
	"github.com/jcmexdev/storefront/internal/shopapi"
)

func main() {
	logger := telemetry.InitLogger()
	cfg := config.Load()
	ctx := context.Background()

	// Missing required collaborators abort startup; nothing here is
	// probed or retried at request time.
	if cfg.Shop.BaseURL == "" {
		logger.Error("SHOP_API_URL is required")
		os.Exit(1)
	}

	shutdown, err := telemetry.SetupTracer(ctx, cfg.OTLP.ServiceName)
	if err != nil {
		logger.Error("failed to set up tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = shutdown(context.Background()) }()

	var catalogCache cache.Cache
	if cfg.Redis.Addr != "" {
		catalogCache = cache.NewRedisCache(cfg.Redis.Addr, cfg.OTLP.ServiceName)
		logger.Info("using redis catalog cache", slog.String("addr", cfg.Redis.Addr))
	} else {
		catalogCache = cache.NewMemoryCache(cfg.OTLP.ServiceName)
	}

	var (
		audit   checkoutlog.Repository
		history httpx.TransitionHistorian
	)
	if cfg.Audit.Path != "" {
		repo, err := checkoutsqlite.Open(cfg.Audit.Path)
		if err != nil {
			logger.Error("failed to open checkout log", slog.Any("error", err))
			os.Exit(1)
		}
		defer repo.Close()
		audit = repo
		history = repo
		logger.Info("checkout transition log enabled", slog.String("path", cfg.Audit.Path))
	}

	shop := shopapi.NewClient(cfg.Shop.BaseURL, cfg.Shop.CDNURL, catalogCache, logger)

	manager := session.NewManager(session.Collaborators{
		Catalog: shop,
		Orders:  shop,
		Audit:   audit,
		Logger:  logger,
	})

	handler := httpx.NewHandler(manager, history)
	router := httpx.NewRouter(handler)

	logger.Info("storefront running",
		slog.String("addr", cfg.Server.Addr),
		slog.String("shop_api", cfg.Shop.BaseURL),
	)
	if err := http.ListenAndServe(cfg.Server.Addr, router); err != nil {
		logger.Error("http server failed", slog.Any("error", err))
		os.Exit(1)
	}
}
