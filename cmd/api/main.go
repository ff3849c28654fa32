package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/aleo-freelance/backend/internal/aleo"
	"github.com/aleo-freelance/backend/internal/config"
	"github.com/aleo-freelance/backend/internal/db"
	"github.com/aleo-freelance/backend/internal/events"
	apphttp "github.com/aleo-freelance/backend/internal/http"
	"github.com/aleo-freelance/backend/internal/http/handlers"
	"github.com/aleo-freelance/backend/internal/repositories"
	"github.com/aleo-freelance/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	txRepo := repositories.NewTransactionRepo(pool)
	milestoneRepo := repositories.NewMilestoneRepo(pool)
	notifRepo := repositories.NewNotificationRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Ledger plumbing
	wallet := aleo.NewBridgeClient(cfg.WalletBridgeURL, log)
	tracker := aleo.NewTracker(wallet, cfg.FinalityPollInterval, cfg.FinalityTimeout, log)
	explorer := aleo.NewExplorerClient(cfg.AleoAPIURL, cfg.AleoNetwork, log)
	locks := services.NewOpLocks(rdb, cfg.OpLockTTL)

	// Services
	escrowService := services.NewEscrowService(userRepo, escrowRepo, txRepo, milestoneRepo, notifRepo,
		wallet, tracker, explorer, locks, publisher, cfg, log)
	profileService := services.NewProfileService(userRepo, log)
	notificationService := services.NewNotificationService(notifRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, cfg, log)
	profileHandler := handlers.NewProfileHandler(profileService, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, escrowRepo, txRepo, milestoneRepo, log)
	notificationHandler := handlers.NewNotificationHandler(notificationService, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	wsHub.Start(ctx)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, profileHandler, escrowHandler, notificationHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
