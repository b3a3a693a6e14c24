// Package main provides the API server entry point for the giveaway service.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AyuTriphasari/baget/internal/adapter"
	"github.com/AyuTriphasari/baget/internal/api"
	"github.com/AyuTriphasari/baget/internal/config"
	"github.com/AyuTriphasari/baget/internal/logging"
	"github.com/AyuTriphasari/baget/internal/service"
	"github.com/AyuTriphasari/baget/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("structured logging initialized")

	// Postgres holds the giveaway records and the winner ledger.
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Postgres")
	}
	defer postgres.Close()

	// Redis is optional. Without it the status cache and the sync debounce
	// are process-local, which is correct for a single instance.
	statusCache, debounce := buildTTLStores(cfg, logger)

	chainClient, err := adapter.NewChainClient(cfg.Chain.RPCURL, cfg.Chain.ContractAddress, cfg.Chain.RPCRateLimit)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to chain RPC")
	}
	defer chainClient.Close()

	neynarClient := adapter.NewNeynarClient(cfg.Neynar.BaseURL, cfg.Neynar.APIKey)
	logIndexClient := adapter.NewLogIndexClient(cfg.LogIndex.BaseURL, cfg.LogIndex.APIKey, cfg.LogIndex.RequestsPerS)

	giveawayRepo := storage.NewGiveawayRepository(postgres)
	winnerRepo := storage.NewWinnerRepository(postgres)

	verifier := service.NewVerifier(neynarClient, logger)
	signer, err := service.NewSigner(cfg.Chain.SignerKey, uint64(cfg.Chain.ChainID), verifier, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize signer")
	}
	logger.WithField("signer", signer.SignerAddress().Hex()).Info("authorization signer ready")

	statusService := service.NewStatusService(chainClient, statusCache, cfg.Cache.StatusTTL, logger)
	recorder := service.NewRecorder(chainClient, neynarClient, winnerRepo, statusService, logger)
	reconciler := service.NewReconciler(chainClient, logIndexClient, neynarClient, winnerRepo, giveawayRepo, debounce, cfg.Cache.SyncDebounce, logger)
	giveawayService := service.NewGiveawayService(giveawayRepo, winnerRepo, statusService, reconciler, logger)

	server := api.NewServer(
		&api.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateWindow:      cfg.RateLimit.Window,
			ClaimPerWindow:  cfg.RateLimit.ClaimPerWindow,
			LookupPerWindow: cfg.RateLimit.LookupPerWindow,
		},
		signer,
		recorder,
		giveawayService,
		neynarClient,
		logger,
	)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	logger.Info("server stopped")
}

// buildTTLStores wires the status cache and sync debounce to Redis when
// configured, else to process-local stores.
func buildTTLStores(cfg *config.Config, logger *logging.Logger) (storage.TTLStore, storage.TTLStore) {
	if cfg.Database.Redis.Host == "" {
		logger.Info("no Redis configured, using in-memory TTL stores")
		return storage.NewMemoryTTLStore(), storage.NewMemoryTTLStore()
	}

	cache, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, falling back to in-memory TTL stores")
		return storage.NewMemoryTTLStore(), storage.NewMemoryTTLStore()
	}

	store := storage.NewRedisTTLStore(cache)
	return store, store
}
