package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	logpkg "github.com/semantic-meta-enrichment/frost-harvester/common/logger"
	"github.com/semantic-meta-enrichment/frost-harvester/internal/config"
	"github.com/semantic-meta-enrichment/frost-harvester/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "frost-harvester")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	log.Info("Starting frost-harvester",
		zap.String("frost_base_url", cfg.Frost.BaseURL),
		zap.Bool("translation_enabled", cfg.Translation.Enabled),
		zap.Bool("store_enabled", cfg.Harvest.StoreEnabled),
		zap.String("stream", cfg.Harvest.Stream),
		zap.String("mqtt_topic", cfg.Harvest.MQTTTopic),
		zap.String("export_path", cfg.Harvest.ExportPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := service.BuildHarvestDeps(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize harvest dependencies", zap.Error(err))
		return 1
	}

	svc, err := service.NewHarvestService(cfg, deps, log)
	if err != nil {
		log.Error("Failed to create harvest service", zap.Error(err))
		return 1
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start returns on its own in run-once mode.
	errChan := make(chan error, 1)
	go func() {
		errChan <- svc.Start(ctx)
	}()

	exitCode := 0
	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil {
			log.Error("Harvest failed", zap.Error(err))
			exitCode = 1
		}
	}

	if err := svc.Stop(context.Background()); err != nil {
		log.Error("Error stopping service", zap.Error(err))
	}

	log.Info("Service stopped")
	return exitCode
}
