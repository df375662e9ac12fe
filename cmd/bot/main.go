package main

import (
	"context"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"carcost-bot/internal/bootstrap"
	"carcost-bot/internal/infrastructure/telegram"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := bootstrap.ProvideLogger()
	cfg := bootstrap.ProvideConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.BotToken == "" {
		logger.Fatal("BOT_TOKEN is required")
	}
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal("telegram auth", zap.Error(err))
	}
	logger.Info("authorized", zap.String("bot", api.Self.UserName))

	keeper := bootstrap.BuildRateKeeper(cfg, logger)
	fetcher, rawListing := bootstrap.BuildListingFetcher(cfg)
	quoter := bootstrap.BuildQuoter(cfg)
	crm := bootstrap.BuildCRM(cfg)

	leads, _, closeQueue, err := bootstrap.BuildQueue(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap queue", zap.Error(err))
	}
	defer closeQueue()

	sessions, closeSessions := bootstrap.BuildSessions(cfg, logger)
	defer closeSessions()

	ctrl := bootstrap.BuildController(sessions, crm, leads, quoter, keeper, logger)

	// Fetch initial rates, then keep them fresh in the background.
	if err := keeper.Refresh(ctx); err != nil {
		logger.Warn("initial rate refresh incomplete", zap.Error(err))
	}
	go keeper.Start(ctx)

	bot := telegram.New(api, ctrl, fetcher, quoter, keeper, rawListing,
		cfg.ChannelHandle, cfg.ManagerContact, logger)

	logger.Info("bot started")
	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("bot stopped", zap.Error(err))
	}
	logger.Info("bot stopped")
	_ = logger.Sync()
}
