package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"escrowmarket/config"
	"escrowmarket/core/events"
	"escrowmarket/native/bank"
	"escrowmarket/native/catalog"
	nativecommon "escrowmarket/native/common"
	"escrowmarket/native/escrow"
	"escrowmarket/observability/logging"
	"escrowmarket/rpc"
	"escrowmarket/storage"
	"escrowmarket/storage/kv"
)

const (
	envName   = "ESCROWD_ENV"
	authToken = "ESCROWD_RPC_TOKEN"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envName))

	cfg, err := config.Load(*configFile)
	if err != nil {
		logging.Setup("escrowd", env).Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if env == "" {
		env = cfg.Env
	}

	var logger *slog.Logger
	if cfg.LogFile != "" {
		logger = logging.SetupWithFile("escrowd", env, cfg.LogFile)
	} else {
		logger = logging.Setup("escrowd", env)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("Failed to create data directory", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := storage.Open(filepath.Join(cfg.DataDir, "market.db"))
	if err != nil {
		logger.Error("Failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	journalDB, err := kv.NewLevelDB(filepath.Join(cfg.DataDir, "events"))
	if err != nil {
		logger.Error("Failed to open event journal", slog.Any("error", err))
		os.Exit(1)
	}
	defer journalDB.Close()

	journal, err := events.NewJournal(journalDB, func(err error) {
		logger.Warn("Event journal write failed", slog.Any("error", err))
	})
	if err != nil {
		logger.Error("Failed to initialise event journal", slog.Any("error", err))
		os.Exit(1)
	}

	hub := rpc.NewEventHub()
	emitter := events.Fanout{journal, hub}

	cat := catalog.NewEngine()
	cat.SetState(store)
	cat.SetEmitter(emitter)

	ledger := bank.NewLedger(store)

	owner, err := cfg.OwnerAddress()
	if err != nil {
		logger.Error("Invalid owner address", slog.Any("error", err))
		os.Exit(1)
	}
	vault, err := cfg.VaultAddress()
	if err != nil {
		logger.Error("Invalid vault address", slog.Any("error", err))
		os.Exit(1)
	}

	esc := escrow.NewEngine(owner, vault)
	esc.SetState(store)
	esc.SetCatalog(cat)
	esc.SetLedger(ledger)
	esc.SetEmitter(emitter)

	token := strings.TrimSpace(os.Getenv(authToken))
	if token == "" {
		token = strings.TrimSpace(cfg.RPCToken)
	}
	logger.Info("Loaded configuration",
		slog.String("data_dir", cfg.DataDir),
		slog.String("owner", cfg.Owner),
		slog.String("vault", cfg.Vault),
		logging.MaskSecret("rpc_token", token),
	)

	server := rpc.NewServer(cat, esc, ledger, hub, rpc.ServerConfig{
		AuthToken: token,
		Quota: nativecommon.Quota{
			MaxRequestsPerWindow: cfg.RPCRateLimit,
			WindowSeconds:        cfg.RPCRateWindowSeconds,
		},
	})

	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("RPC server listening", slog.String("address", cfg.RPCAddress))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("RPC server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
