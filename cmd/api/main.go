package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/derrickappah/smm-panel-sub007/internal/adapter/handler"
	"github.com/derrickappah/smm-panel-sub007/internal/adapter/middleware"
	"github.com/derrickappah/smm-panel-sub007/internal/adapter/storage"
	"github.com/derrickappah/smm-panel-sub007/internal/core/config"
	"github.com/derrickappah/smm-panel-sub007/internal/core/gateway"
	"github.com/derrickappah/smm-panel-sub007/internal/core/payments"
	"github.com/derrickappah/smm-panel-sub007/internal/core/pipeline"
	"github.com/derrickappah/smm-panel-sub007/internal/core/ratelimit"
	"github.com/derrickappah/smm-panel-sub007/internal/core/reward"
	"github.com/derrickappah/smm-panel-sub007/internal/core/smm"
	"github.com/derrickappah/smm-panel-sub007/internal/core/worker"
)

// rewardStore joins the claim rows with the deposit sums the eligibility
// engine needs; both live in the same database.
type rewardStore struct {
	*storage.RewardRepository
	*storage.LedgerRepository
}

func main() {
	cfg := config.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dbPool, err := storage.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("❌ Database connection failed", "error", err)
		os.Exit(1)
	}

	// Repositories
	accountRepo := storage.NewAccountRepository(dbPool)
	ledgerRepo := storage.NewLedgerRepository(dbPool)
	orderRepo := storage.NewOrderRepository(dbPool)
	serviceRepo := storage.NewServiceRepository(dbPool)
	rewardRepo := storage.NewRewardRepository(dbPool)
	settingsRepo := storage.NewSettingsRepository(dbPool, cfg.RewardThreshold, cfg.RewardAmount)

	// Core services
	gateways := gateway.NewRegistry(
		gateway.NewPaystack(cfg.Paystack),
		gateway.NewKorapay(cfg.Korapay),
		gateway.NewVoguepay(cfg.Voguepay),
	)
	paymentSvc := payments.NewService(gateways, ledgerRepo)
	panelClient := smm.NewClient(cfg.ProviderAPIURL, cfg.ProviderAPIKey)
	orderPipeline := pipeline.New(ledgerRepo, orderRepo, serviceRepo, panelClient)
	rewardEngine := reward.NewEngine(rewardStore{rewardRepo, ledgerRepo}, settingsRepo)

	// Handlers
	authHandler := &handler.AuthHandler{Accounts: accountRepo, JWTSecret: cfg.JWTSecret}
	paymentHandler := &handler.PaymentHandler{
		Payments:       paymentSvc,
		PaystackSecret: cfg.Paystack.SecretKey,
		KorapaySecret:  cfg.Korapay.SecretKey,
	}
	orderHandler := &handler.OrderHandler{Pipeline: orderPipeline, Orders: orderRepo}
	rewardHandler := &handler.RewardHandler{Engine: rewardEngine}
	accountHandler := &handler.AccountHandler{Ledger: ledgerRepo, Services: serviceRepo, Settings: settingsRepo}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	ipLimiter := ratelimit.NewStore(cfg.RateLimitIPPerMin)
	userLimiter := ratelimit.NewStore(cfg.RateLimitUserPerMin)
	limited := middleware.RateLimit(ipLimiter, userLimiter)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/v1")

	// Public
	api.Post("/auth/register", limited, authHandler.Register)
	api.Post("/auth/login", limited, authHandler.Login)
	api.Get("/services", accountHandler.ListServices)
	api.Post("/payments/:provider/webhook", paymentHandler.Webhook)

	// Protected
	private := api.Group("", middleware.Protected(cfg.JWTSecret, accountRepo))
	private.Get("/auth/me", authHandler.Me)
	private.Get("/user/balance", accountHandler.Balance)
	private.Get("/user/transactions", accountHandler.Transactions)
	private.Post("/payments/:provider/verify", limited, paymentHandler.Verify)
	private.Post("/orders", limited, middleware.Idempotency(dbPool), orderHandler.Create)
	private.Get("/orders", orderHandler.List)
	private.Get("/orders/:id", orderHandler.Get)
	private.Post("/rewards/check-eligibility", rewardHandler.Check)
	private.Post("/rewards/claim", limited, middleware.Idempotency(dbPool), rewardHandler.Claim)

	// Admin
	admin := private.Group("/admin", middleware.AdminOnly())
	admin.Put("/deposits/:id", accountHandler.SettleDeposit)
	admin.Put("/reward-policy", accountHandler.UpdateRewardPolicy)

	// Background reconciliation of orders stuck mid-settlement.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	reconciler := worker.NewReconciler(orderRepo, ledgerRepo, panelClient)
	reconciler.Start(workerCtx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("🚀 Server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("🛑 Shutting down server...")

	stopWorker()

	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	dbPool.Close()
	slog.Info("✅ Database connection closed")

	slog.Info("👋 Server exited successfully")
}
