package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	domainRepo "flightwatch-service/internal/domain/repository"
	"flightwatch-service/internal/infrastructure/config"
	"flightwatch-service/internal/infrastructure/persistence"
	"flightwatch-service/internal/interface/provider"
	storeRepo "flightwatch-service/internal/interface/repository"
	"flightwatch-service/internal/usecase"
	"flightwatch-service/pkg/logger"
	"flightwatch-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	log.Info("Starting Flightwatch Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the embedded store
	log.Info("Opening database", "path", cfg.DatabasePath)
	db, err := persistence.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open database", "error", err)
	}

	// Set up repositories
	flightRepo := storeRepo.NewGormFlightRepository(db)
	subscriptionRepo := storeRepo.NewGormSubscriptionRepository(db)
	statusChangeRepo := storeRepo.NewGormStatusChangeRepository(db)
	usageRepo := storeRepo.NewGormUsageRepository(db)
	notifier := storeRepo.NewTelegramNotifier(cfg.TelegramBotToken, log)

	// Metrics
	m := metrics.NewMetrics("flightwatch")

	// Usage budget ledger
	usageTracker := usecase.NewUsageTracker(usageRepo, cfg.MonthlyQuota, cfg.ReserveBudget, cfg.PollingFloor, log)

	// Providers: one metered primary behind a response cache, two ranked
	// fallbacks consulted only on weak answers
	cache := provider.NewResponseCache(cfg.CacheSize, cfg.CacheTTL)
	primary := provider.NewPrimaryClient(provider.PrimaryConfig{
		BaseURL:      cfg.PrimaryBaseURL,
		APIKey:       cfg.PrimaryAPIKey,
		TokenURL:     cfg.PrimaryTokenURL,
		ClientID:     cfg.PrimaryClientID,
		ClientSecret: cfg.PrimaryClientSecret,
		Timeout:      cfg.PrimaryTimeout,
	}, cache, usageTracker, log)

	fallbackA := provider.NewFlightAwareFallback(cfg.FlightAwareBaseURL, log)
	fallbackB := provider.NewFlightStatsFallback(cfg.FlightStatsBaseURL, provider.ScoreWeights{
		Status:   cfg.ScoreStatusWeight,
		Delay:    cfg.ScoreDelayWeight,
		Gate:     cfg.ScoreGateWeight,
		Terminal: cfg.ScoreTerminalWeight,
	}, log)

	reconciler := usecase.NewReconciler(flightRepo, statusChangeRepo, usageTracker, primary,
		[]domainRepo.FallbackProvider{fallbackA, fallbackB}, log, m)

	tracker := usecase.NewTrackerService(flightRepo, subscriptionRepo, usageTracker, primary, reconciler, log)

	poller := usecase.NewPoller(flightRepo, subscriptionRepo, reconciler, usageTracker, notifier, log, m, usecase.PollerConfig{
		WakeInterval:      cfg.PollWakeInterval,
		Lookahead:         cfg.PollLookahead,
		FarInterval:       cfg.FarInterval,
		NearThreshold:     cfg.NearThreshold,
		NearInterval:      cfg.NearInterval,
		ImminentThreshold: cfg.ImminentThreshold,
		ImminentInterval:  cfg.ImminentInterval,
		FlightTimeout:     cfg.FlightTimeout,
	})

	cleaner := usecase.NewCleaner(flightRepo, log, m, usecase.CleanerConfig{
		WakeInterval: cfg.CleanupInterval,
		GraceWindow:  cfg.GraceWindow,
		Retention:    cfg.Retention,
	})

	// Start background loops
	go poller.Run(ctx)
	go cleaner.Run(ctx)

	// Set up HTTP server for metrics
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})
	mux.HandleFunc("/usage", func(w http.ResponseWriter, r *http.Request) {
		usage, err := tracker.GetUsage(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"used":%d,"limit":%d,"remaining":%d}`, usage.Used, usage.Limit, usage.Remaining)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop all goroutines

	log.Info("Flightwatch Service stopped")
}
