package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heymumford/migrationcore/infrastructure/config"
	"github.com/heymumford/migrationcore/infrastructure/logging"
	"github.com/heymumford/migrationcore/infrastructure/metrics"
	"github.com/heymumford/migrationcore/internal/caller"
	"github.com/heymumford/migrationcore/internal/checkpoint"
	"github.com/heymumford/migrationcore/internal/contract"
	"github.com/heymumford/migrationcore/internal/orchestrator"
	"github.com/heymumford/migrationcore/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file (overrides CONFIG_FILE)")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("CONFIG_FILE", *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New("migrationd", cfg.Logging.Level, cfg.Logging.Format)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.Init()
	}

	store, err := newCheckpointStore(cfg.Checkpoint)
	if err != nil {
		logger.WithFields(map[string]any{"driver": cfg.Checkpoint.Driver}).WithError(err).Fatal("failed to initialize checkpoint store")
	}

	registry := contract.New()
	sessions := session.New()
	callr := caller.New(sessions)

	orch := orchestrator.New(registry, sessions, callr, store, m, logger)
	defer orch.Stop()

	mux := http.NewServeMux()
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
	go func() {
		logger.WithFields(map[string]any{"addr": cfg.Metrics.Addr}).Info("serving metrics and health endpoints")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithFields(map[string]any{}).WithError(err).Error("metrics server exited")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.WithFields(map[string]any{}).Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func newCheckpointStore(cfg config.CheckpointConfig) (checkpoint.Store, error) {
	switch cfg.Driver {
	case "file":
		return checkpoint.NewFileStore(cfg.Path)
	default:
		return checkpoint.NewMemoryStore(), nil
	}
}
