package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Chichichkin/LogzioShipper/internal/config"
	"github.com/Chichichkin/LogzioShipper/internal/daemon"
	"github.com/Chichichkin/LogzioShipper/pkg/logzio"
)

const closeTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", "config.yaml"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logger, cfg.Shipper.Debug)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ship, err := newShipper(cfg.Shipper, logger)
	if err != nil {
		logger.Error("failed to create shipper", "error", err)
		os.Exit(1)
	}

	service := daemon.NewLogDaemonService(ctx, daemon.Config{
		LogRootPath:     cfg.Agent.LogRootPath,
		ScanInterval:    cfg.Agent.ScanInterval,
		Workers:         cfg.Agent.Workers,
		FileQueueSize:   cfg.Agent.FileQueueSize,
		NodeName:        cfg.Agent.NodeName,
		MetricsInterval: cfg.Agent.MetricsInterval,
		FileIdleTimeout: cfg.Agent.FileIdleTimeout,
	}, ship, logger)
	service.Start()

	<-ctx.Done()
	logger.Info("shutting down")

	service.Stop()
	ship.Stop()

	m := ship.Metrics()
	logger.Info("shipper stopped",
		"records_sent", m.RecordsSent, "batches_failed", m.BatchesFailed, "retries", m.Retries)
}

// shipper adapts logzio.Logger to the daemon's batch processor interface.
type shipper struct {
	*logzio.Logger
}

func newShipper(cfg config.ShipperConfig, logger *slog.Logger) (*shipper, error) {
	l, err := logzio.New(logzio.Options{
		Token:           cfg.Token,
		Protocol:        cfg.Protocol,
		Host:            cfg.Host,
		Port:            cfg.Port,
		SendInterval:    cfg.SendInterval,
		BufferSize:      cfg.BufferSize,
		NumberOfRetries: cfg.NumberOfRetries,
		RetryBackoff:    cfg.RetryBackoff,
		Timeout:         cfg.Timeout,
		ExtraFields:     cfg.ExtraFields,
		LogType:         cfg.LogType,
		Debug:           cfg.Debug,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	return &shipper{Logger: l}, nil
}

func (s *shipper) AddEntry(entry any) {
	s.Log(entry)
}

// Start is a no-op: logzio.New already runs the flush timer.
func (s *shipper) Start() {}

func (s *shipper) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		slog.Error("shipper did not drain in time", "error", err)
	}
}
