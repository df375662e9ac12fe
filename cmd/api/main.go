package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"carcost-bot/internal/bootstrap"
	httpserver "carcost-bot/internal/infrastructure/http"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := bootstrap.ProvideLogger()
	cfg := bootstrap.ProvideConfig()
	addr := ":" + cfg.Port

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keeper := bootstrap.BuildRateKeeper(cfg, logger)
	fetcher, _ := bootstrap.BuildListingFetcher(cfg)
	quoter := bootstrap.BuildQuoter(cfg)

	if err := keeper.Refresh(ctx); err != nil {
		logger.Warn("initial rate refresh incomplete", zap.Error(err))
	}
	go keeper.Start(ctx)

	srv := httpserver.NewServer(keeper, quoter, fetcher)
	if cfg.Storage == "pg" {
		_, db, closeDB, err := bootstrap.BuildQueue(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("bootstrap queue", zap.Error(err))
		}
		defer closeDB()
		srv = srv.WithPing(db.Ping)
	}
	mux := httpserver.NewRouter(srv)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
	_ = logger.Sync()
}
