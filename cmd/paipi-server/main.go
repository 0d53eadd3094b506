// Package main provides the paipi HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/paipi-go/internal/cache"
	"github.com/raphaelgruber/paipi-go/internal/codegen"
	"github.com/raphaelgruber/paipi-go/internal/config"
	"github.com/raphaelgruber/paipi-go/internal/db"
	"github.com/raphaelgruber/paipi-go/internal/index"
	"github.com/raphaelgruber/paipi-go/internal/llm"
	"github.com/raphaelgruber/paipi-go/internal/metrics"
	"github.com/raphaelgruber/paipi-go/internal/readme"
	"github.com/raphaelgruber/paipi-go/internal/registry"
	"github.com/raphaelgruber/paipi-go/internal/search"
	"github.com/raphaelgruber/paipi-go/internal/server"
)

// Version is set at build time.
var Version = "0.1.0"

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *wipeDB, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, wipeDB bool, logger *slog.Logger) error {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	dbClient, err := db.NewClient(connectCtx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if err := dbClient.InitSchema(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	if wipeDB || os.Getenv("PAIPI_WIPE_DB") == "true" {
		if err := dbClient.WipeData(ctx); err != nil {
			return fmt.Errorf("wipe database: %w", err)
		}
		logger.Warn("database wiped")
	}

	collector := metrics.NewCollector()

	llmClient, err := llm.New(cfg, collector, logger)
	if err != nil {
		return fmt.Errorf("init llm client: %w", err)
	}

	oracle := index.New(dbClient, logger)
	if err := startIndex(ctx, oracle, logger); err != nil {
		return err
	}

	cacheMgr := cache.NewManager(dbClient, cfg.CacheDir, logger)

	augmenter := registry.NewAugmenter(
		registry.NewClient(collector, logger),
		dbClient,
		cfg.AugmentConcurrency,
		logger,
	)

	searchSvc := search.NewService(
		search.NewGenerator(llmClient, 0, logger),
		search.NewSynthesizer(llmClient, llmClient, 0, logger),
		augmenter,
		oracle,
		cacheMgr,
		collector,
		logger,
		0,
	)

	// Package generation needs a local docker daemon. Without one the server
	// still runs, with the generation endpoint answering 503.
	var builder server.PackageBuilder
	runner, err := codegen.NewRunner(codegen.Config{
		CacheDir:     cacheMgr.Dir(),
		OpenAIAPIKey: cfg.OpenRouterAPIKey,
		Model:        cfg.Model,
	}, logger)
	if err != nil {
		logger.Warn("package generation disabled", "error", err)
	} else {
		builder = runner
	}

	srv := server.New(server.Deps{
		Searcher:  searchSvc,
		Readme:    readme.NewGenerator(llmClient, logger),
		Cache:     cacheMgr,
		Oracle:    oracle,
		Builder:   builder,
		Collector: collector,
		Logger:    logger,
		Version:   Version,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return srv.Run(ctx, addr)
}

// startIndex readies the name oracle for serving. A recent index is loaded
// and used as is; an outdated one is loaded stale and refreshed in the
// background; a missing or empty one leaves the oracle unloaded (every
// candidate looks fabricated) while the refresh runs.
func startIndex(ctx context.Context, oracle *index.Oracle, logger *slog.Logger) error {
	state, err := oracle.Check(ctx)
	if err != nil {
		return fmt.Errorf("check package index: %w", err)
	}

	if state.Status == index.StatusRecent || state.Status == index.StatusOutdated {
		if _, err := oracle.Load(ctx); err != nil {
			return fmt.Errorf("load package index: %w", err)
		}
	}
	if state.Status == index.StatusRecent {
		return nil
	}

	logger.Info("refreshing package-name index in background", "status", string(state.Status))
	go func() {
		count, err := oracle.Refresh(ctx, nil)
		if err != nil {
			logger.Error("background index refresh failed", "error", err)
			return
		}
		logger.Info("package-name index refreshed", "count", count)
	}()
	return nil
}
