package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"carcost-bot/internal/application"
	"carcost-bot/internal/bootstrap"
)

func init() { _ = godotenv.Load() }

// Drains the lead backup queue into the CRM once and exits. Intended to run
// from cron or by hand after a CRM outage.
func main() {
	logger := bootstrap.ProvideLogger()
	cfg := bootstrap.ProvideConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	leads, _, closeQueue, err := bootstrap.BuildQueue(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap queue", zap.Error(err))
	}
	defer closeQueue()

	retrier := application.NewLeadRetrier(leads, bootstrap.BuildCRM(cfg), logger)
	submitted, failed, err := retrier.Run(ctx)
	if err != nil {
		logger.Error("retry run finished with errors", zap.Error(err))
	}
	logger.Info("retry run finished",
		zap.Int("submitted", submitted),
		zap.Int("failed", failed),
	)
	_ = logger.Sync()
}
