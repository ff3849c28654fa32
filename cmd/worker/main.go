package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aleo-freelance/backend/internal/aleo"
	"github.com/aleo-freelance/backend/internal/config"
	"github.com/aleo-freelance/backend/internal/db"
	"github.com/aleo-freelance/backend/internal/repositories"
	"github.com/aleo-freelance/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	txRepo := repositories.NewTransactionRepo(pool)
	wallet := aleo.NewBridgeClient(cfg.WalletBridgeURL, log)
	reconciler := services.NewReconciler(txRepo, wallet, rdb, cfg, log)

	interval := cfg.WorkerPollEvery
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info("worker started", zap.Duration("interval", interval))

	for {
		select {
		case <-ticker.C:
			resolved, err := reconciler.Run(ctx)
			if err != nil {
				log.Error("reconcile pending transactions", zap.Error(err))
				continue
			}
			if resolved > 0 {
				log.Info("reconciled transactions", zap.Int("resolved", resolved))
			}
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
