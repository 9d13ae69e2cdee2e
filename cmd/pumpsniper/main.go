// Command pumpsniper is the process entrypoint: load configuration, open
// the ledger, construct the orchestrator, and run until SIGINT/SIGTERM
// triggers a drained shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/elly-po/pumpsniper/internal/config"
	"github.com/elly-po/pumpsniper/internal/ledger"
	"github.com/elly-po/pumpsniper/internal/metrics"
	"github.com/elly-po/pumpsniper/internal/orchestrator"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	envPath := flag.String("env", ".env", "path to .env")
	ledgerPath := flag.String("ledger", "pumpsniper.db", "path to the sqlite dispatch ledger")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if err := run(*configPath, *envPath, *ledgerPath, log); err != nil {
		log.Errorw("fatal startup error", "err", err)
		os.Exit(1)
	}
}

func run(configPath, envPath, ledgerPath string, log *zap.SugaredLogger) error {
	cfg, err := config.Load(configPath, envPath)
	if err != nil {
		return err
	}

	led, err := ledger.Open(ledgerPath)
	if err != nil {
		return err
	}
	defer led.Close()

	m := metrics.New()

	orch, err := orchestrator.New(cfg, m, led, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("sniper live - waiting for tokens...",
		"subscriptions", len(cfg.ProgramSubscriptions),
		"confidence_threshold", cfg.ConfidenceThreshold,
		"score_threshold", cfg.ScoreThreshold,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- orch.Run(ctx) }()

	select {
	case <-ctx.Done():
		log.Infow("shutdown signal received, draining in-flight messages...")
		<-errCh
		log.Infow("shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}
