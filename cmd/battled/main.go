package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cryptoclash/backend/pkg/chain"
	"github.com/cryptoclash/backend/pkg/config"
	"github.com/cryptoclash/backend/pkg/market"
	"github.com/cryptoclash/backend/pkg/metrics"
	"github.com/cryptoclash/backend/server/api"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "battled: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	m := metrics.New("battled")

	// Without the admin key the ledger client still serves reads;
	// mint, finalize and backend-built creates report not configured.
	var admin *chain.Ed25519Signer
	if cfg.AdminPrivateKey != "" {
		admin, err = chain.NewEd25519Signer(cfg.AdminPrivateKey)
		if err != nil {
			return fmt.Errorf("admin key: %w", err)
		}
		log.Info("admin signer loaded", slog.String("address", admin.Address()))
	} else {
		log.Warn("no admin private key configured, running in read-only mode")
	}

	ledgerCfg := chain.Config{
		RPCURL:          cfg.RPCURL,
		PackageID:       cfg.PackageID,
		AdminCapID:      cfg.AdminCapID,
		DeployerAddress: cfg.DeployerAddress,
		CoinType:        cfg.CoinType,
		GasBudget:       cfg.GasBudget,
		Timeout:         cfg.RPCTimeout(),
	}
	var ledger *chain.Client
	if admin != nil {
		ledger = chain.NewClient(ledgerCfg, admin, m, log)
	} else {
		ledger = chain.NewClient(ledgerCfg, nil, m, log)
	}

	var cache *market.Cache
	if cfg.RedisAddr != "" {
		cache = market.NewCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := cache.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable, market cache disabled", slog.String("error", err.Error()))
			cache = nil
		}
		cancel()
	}
	mkt := market.NewClient(market.Config{
		CoinGeckoURL: cfg.CoinGeckoURL,
		BinanceURL:   cfg.BinanceURL,
	}, cache, m, log)

	server := api.New(ledger, mkt, m, log)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
