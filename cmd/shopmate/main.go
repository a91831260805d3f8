package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"shopmate/internal/assistant"
	"shopmate/internal/catalog"
	"shopmate/internal/chatapi"
	"shopmate/internal/config"
	"shopmate/internal/httpapi"
	"shopmate/internal/ledger"
	"shopmate/internal/observability"
	"shopmate/internal/profile"
	"shopmate/internal/recs"
	"shopmate/internal/sessionlog"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("dotenv load skipped: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	interactions, err := ledger.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("interaction store init failed: %v", err)
	}
	defer interactions.Close()

	turns, err := sessionlog.NewTurnStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("turn store init failed: %v", err)
	}
	defer turns.Close()

	kv, err := sessionlog.NewKVStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("session kv init failed: %v", err)
	}
	defer kv.Close()

	var cat catalog.Client
	if strings.TrimSpace(cfg.CatalogAPIKey) != "" {
		cat = catalog.NewHTTPClient(catalog.HTTPConfig{
			BaseURL:           cfg.CatalogBaseURL,
			APIKey:            cfg.CatalogAPIKey,
			Timeout:           cfg.CatalogTimeout,
			RequestsPerMinute: cfg.CatalogRequestsPerMinute,
		})
		log.Printf("catalog provider: http (%s)", cfg.CatalogBaseURL)
	} else {
		cat = catalog.NewMockClient()
		log.Printf("catalog provider: mock (CATALOG_API_KEY not set)")
	}

	var remote chatapi.Client
	if strings.TrimSpace(cfg.ChatBaseURL) != "" {
		remote = chatapi.NewHTTPClient(cfg.ChatBaseURL, cfg.ChatTimeout)
		log.Printf("chat provider: http (%s)", cfg.ChatBaseURL)
	} else {
		remote = chatapi.NewMockClient()
		log.Printf("chat provider: mock (CHAT_BASE_URL not set)")
	}

	engine := recs.New(cat, recs.Options{
		FanoutDelay:   cfg.RecsFanoutDelay,
		SourceTimeout: cfg.RecsSourceTimeout,
		Metrics:       metrics,
	})

	sessions := sessionlog.NewLog(turns, sessionlog.NewState(kv), remote)
	facade := assistant.New(interactions, profile.NewBuilder(interactions), engine, cat, sessions, metrics)

	api := httpapi.New(cfg, facade, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	ledger.StartPruner(runCtx, interactions, cfg.LedgerRetention, cfg.LedgerPruneInterval)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
