package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shellworks/shelltrainer/internal/config"
	"github.com/shellworks/shelltrainer/internal/history"
	"github.com/shellworks/shelltrainer/internal/logger"
	"github.com/shellworks/shelltrainer/internal/server"
	"github.com/shellworks/shelltrainer/internal/training"
)

func main() {
	configFile := flag.String("config", "data/trainingd.yaml", "Path to daemon config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	noHistory := flag.Bool("no-history", false, "Disable run history persistence")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(*loggingConfig)
	logger.Initialize(logConfig)

	logger.Info("Starting training course server")

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}

	session := training.NewSession(cfg.Course, cfg.Sim, cfg.Scoring)

	var store *history.Store
	if !*noHistory {
		store, err = history.Open(cfg.History)
		if err != nil {
			log.Fatalf("Failed to open run history store: %v", err)
		}
		defer store.Close()
		logger.Info("Run history store opened", "driver", cfg.History.Driver)
	} else {
		logger.Info("Run history persistence disabled")
	}

	srv := server.NewServer(cfg.Server, session, store)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
