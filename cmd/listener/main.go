package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Chichichkin/LogzioShipper/internal/config"
	"github.com/Chichichkin/LogzioShipper/internal/listener"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Logger.JSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := listener.NewServer(cfg.Listener.Addr, cfg.Listener.Token, logger)
	if err := server.Run(ctx); err != nil {
		logger.Error("listener failed", "error", err)
		os.Exit(1)
	}

	stats := server.Stats()
	logger.Info("listener stopped", "bulks", stats.Bulks, "records", stats.Records, "rejected", stats.Rejected)
}
