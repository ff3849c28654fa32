package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aleo-freelance/backend/internal/config"
	"github.com/aleo-freelance/backend/internal/http/handlers"
	"github.com/aleo-freelance/backend/internal/middleware"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	escrowHandler *handlers.EscrowHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/wallet", authHandler.WalletAuth)

	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Public directory
	api.Get("/freelancers", profileHandler.ListFreelancers)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Profile
	protected.Get("/me", profileHandler.GetMe)
	protected.Get("/me/balance", profileHandler.GetBalance)
	protected.Post("/me/skills", profileHandler.AddSkill)
	protected.Delete("/me/skills/:skill", profileHandler.RemoveSkill)
	protected.Get("/profiles/:address", profileHandler.GetProfile)

	// Registration and funds
	protected.Post("/register", escrowHandler.Register)
	protected.Post("/deposit", escrowHandler.Deposit)
	protected.Post("/withdraw", escrowHandler.Withdraw)

	// Escrows
	protected.Post("/escrows", escrowHandler.CreateEscrow)
	protected.Get("/escrows", escrowHandler.ListEscrows)
	protected.Get("/escrows/:id", escrowHandler.GetEscrow)
	protected.Post("/escrows/:id/submit", escrowHandler.SubmitMilestone)
	protected.Post("/escrows/:id/approve", escrowHandler.ApproveMilestone)
	protected.Get("/escrows/:id/transactions", escrowHandler.ListTransactions)
	protected.Get("/escrows/:id/milestones", escrowHandler.ListMilestones)

	// Notifications
	protected.Get("/notifications", notificationHandler.List)
	protected.Get("/notifications/unread-count", notificationHandler.UnreadCount)
	protected.Post("/notifications/:id/read", notificationHandler.MarkRead)
	protected.Post("/notifications/read-all", notificationHandler.MarkAllRead)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
