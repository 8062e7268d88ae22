package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/akenterprises/storefront/api/routes"
	"github.com/akenterprises/storefront/internal/cart"
	"github.com/akenterprises/storefront/internal/catalog"
	"github.com/akenterprises/storefront/internal/orders"
	"github.com/akenterprises/storefront/internal/search"
	"github.com/akenterprises/storefront/internal/session"
	"github.com/akenterprises/storefront/internal/wishlist"
	"github.com/akenterprises/storefront/pkg/backend"
	"github.com/akenterprises/storefront/pkg/config"
	"github.com/akenterprises/storefront/pkg/localstore"
	"github.com/akenterprises/storefront/pkg/logger"
	"github.com/akenterprises/storefront/pkg/metrics"
	"github.com/akenterprises/storefront/pkg/notify"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	store, err := localstore.Open(context.Background(), cfg.LocalStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open local store", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing local store", err)
		}
	}()

	client := backend.NewClient(cfg.Backend)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewSyncMetrics(registry)

	notices := notify.NewBuffer(128)
	sink := notify.Multi{notices, notify.LoggerSink{Log: logg}}

	catalogStore, err := catalog.NewStore(catalog.StoreParams{
		Source: client,
		Config: cfg.Catalog,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog store", err)
		os.Exit(1)
	}
	if err := catalogStore.Load(context.Background()); err != nil {
		// The backend may come up later; the catalog stays empty until a
		// reload succeeds.
		logg.Warn(context.Background(), "initial catalog load failed: "+err.Error())
	}

	searchService, err := search.NewService(search.ServiceParams{
		Catalog: catalogStore,
		Config:  cfg.Search,
		Metrics: syncMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create search service", err)
		os.Exit(1)
	}

	cartEngine, err := cart.NewEngine(cart.EngineParams{
		Store:    store,
		Remote:   client,
		Catalog:  catalogStore,
		Logger:   logg,
		Metrics:  syncMetrics,
		Notifier: sink,
		Pricing: cart.PricingPolicy{
			PlatformFee:         cfg.Pricing.PlatformFee,
			FlatDiscountPercent: cfg.Pricing.FlatDiscountPercent,
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart engine", err)
		os.Exit(1)
	}

	wishlistMirror, err := wishlist.NewMirror(wishlist.MirrorParams{
		Store:    store,
		Remote:   client,
		Catalog:  catalogStore,
		Logger:   logg,
		Metrics:  syncMetrics,
		Notifier: sink,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist mirror", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Remote:  client,
		Cart:    cartEngine,
		Logger:  logg,
		Metrics: syncMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	gate, err := session.NewGate(session.GateParams{
		Store:    store,
		Cart:     cartEngine,
		Wishlist: wishlistMirror,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create session gate", err)
		os.Exit(1)
	}

	if _, _, err := gate.Restore(context.Background()); err != nil {
		logg.Warn(context.Background(), "session restore failed: "+err.Error())
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, store, catalogStore, searchService,
			cartEngine, wishlistMirror, ordersService, gate, notices, registry),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting storefront server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "storefront server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(runCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "server shutdown failed", err)
		}
		// Let in-flight cart and wishlist syncs settle before exit.
		cartEngine.Wait()
		wishlistMirror.Wait()
	}
}
