package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tc.com/price-oracle/pkg/config"
	"tc.com/price-oracle/pkg/logging"
	"tc.com/price-oracle/pkg/metrics"
	"tc.com/price-oracle/pkg/oracle"
	"tc.com/price-oracle/pkg/oracle/feed"
	"tc.com/price-oracle/pkg/oracle/keeper"
	"tc.com/price-oracle/pkg/oracle/spot"
	"tc.com/price-oracle/pkg/oracle/twap"
	"tc.com/price-oracle/pkg/server/api"
	"tc.com/price-oracle/pkg/storage"
	"tc.com/price-oracle/pkg/version"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("price-oracle version %s\n", version.String())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting price-oracle", "version", version.String(), "pair", cfg.Pair)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- run(ctx, cfg, logger)
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Error("Component failed", "error", err)
			cancel()
		}
	}

	logger.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	// Primary feed
	chainlink, err := feed.NewChainlinkFeed("chainlink:"+cfg.Pair, cfg.Feed.RPCURL, cfg.Feed.Address)
	if err != nil {
		return fmt.Errorf("failed to create feed: %w", err)
	}
	feedCtx, feedCancel := context.WithTimeout(ctx, cfg.Feed.Timeout.ToDuration())
	err = chainlink.Initialize(feedCtx)
	feedCancel()
	if err != nil {
		return fmt.Errorf("failed to initialize feed: %w", err)
	}
	defer chainlink.Close()

	// On-chain spot source feeding the TWAP accumulator
	pool, err := spot.NewPoolSource(spot.PoolConfig{
		Name:           "pool:" + cfg.Pair,
		RPCURL:         cfg.Pool.RPCURL,
		PairAddress:    cfg.Pool.Address,
		Token0Decimals: cfg.Pool.Token0Decimals,
		Token1Decimals: cfg.Pool.Token1Decimals,
		Invert:         cfg.Pool.Invert,
	})
	if err != nil {
		return fmt.Errorf("failed to create pool source: %w", err)
	}
	poolCtx, poolCancel := context.WithTimeout(ctx, cfg.Pool.Timeout.ToDuration())
	err = pool.Initialize(poolCtx)
	poolCancel()
	if err != nil {
		return fmt.Errorf("failed to initialize pool source: %w", err)
	}
	defer pool.Close()

	acc, err := twap.New(cfg.Oracle.Capacity, cfg.Oracle.MinWindow.ToDuration(), logger)
	if err != nil {
		return fmt.Errorf("failed to create accumulator: %w", err)
	}

	orc, err := oracle.New(oracle.Config{
		Pair:         cfg.Pair,
		Feed:         chainlink,
		Accumulator:  acc,
		MaxStaleness: cfg.Oracle.MaxStaleness.ToDuration(),
		TWAPWindow:   cfg.Oracle.TWAPWindow.ToDuration(),
		DeviationBps: cfg.Oracle.DeviationBps,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create oracle: %w", err)
	}

	// Event journal
	journal, err := storage.New(cfg.Storage.MaxEvents, cfg.Storage.Path)
	if err != nil {
		logger.Warn("Event journal unavailable, continuing without persistence", "error", err)
		journal = nil
	} else {
		defer journal.Close()
	}

	// WebSocket event streaming
	var wsServer *api.WSServer
	if cfg.Server.WebSocket.Enabled {
		wsServer = api.NewWSServer(cfg.Server.WebSocket.Addr, logger)
		go func() {
			if err := wsServer.Start(); err != nil {
				logger.Error("WebSocket server failed", "error", err)
			}
		}()
	}

	// Pump oracle events to the journal and WebSocket subscribers
	events := make(chan oracle.Event, 64)
	orc.Subscribe(events)
	go func() {
		for ev := range events {
			if journal != nil {
				if err := journal.AddEvent(ev); err != nil {
					logger.Error("Failed to persist event", "type", string(ev.Type), "error", err)
				}
			}
			if wsServer != nil {
				wsServer.Broadcast(ev)
			}
		}
	}()

	// Keeper loop recording spot observations
	kpr := keeper.New(cfg.Pair, pool, acc, cfg.Keeper.Interval.ToDuration(), logger)
	go func() {
		if err := kpr.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Keeper stopped", "error", err)
		}
	}()

	// HTTP API
	httpServer := api.NewServer(cfg.Server.HTTP.Addr, orc, acc, journal, logger)
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpServer.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-httpErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if wsServer != nil {
		if err := wsServer.Stop(shutdownCtx); err != nil {
			logger.Error("WebSocket server shutdown failed", "error", err)
		}
	}

	return nil
}
