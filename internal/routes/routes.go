// Package routes defines the API routing configuration.
// It wires repositories into services, services into handlers, and
// registers all HTTP routes with their middleware.
package routes

import (
	"purse/internal/config"
	"purse/internal/handlers"
	"purse/internal/middleware"
	"purse/internal/models"
	"purse/internal/repositories"
	"purse/internal/services/gateway"
	"purse/internal/services/provider"
	"purse/internal/services/recharge"
	"purse/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Repositories
	walletRepo := repositories.NewWalletRepository(db)
	rechargeRepo := repositories.NewRechargeRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// Services
	walletService := wallet.NewService(
		walletRepo,
		repositories.CacheService,
		&wallet.NoopMetricsCollector{},
	)

	stripeProvider := provider.NewStripeProvider(config.GetEnv("STRIPE_SECRET_KEY", ""))

	rechargeService := recharge.NewService(
		rechargeRepo,
		walletRepo,
		paymentRepo,
		userRepo,
		walletService,
		stripeProvider,
		repositories.CacheService,
	)

	registry := gateway.NewRegistry()
	registry.Register(gateway.WalletGatewayName, gateway.NewWalletGateway(walletRepo, walletService, gateway.WalletConfig{
		RefundPolicy: gateway.RefundPolicy(config.GetEnv("WALLET_REFUND_POLICY", string(gateway.RefundPolicyCapped))),
	}))

	// Handlers
	walletHandler := handlers.NewWalletHandler(walletService)
	rechargeHandler := handlers.NewRechargeHandler(rechargeService, walletService)
	gatewayHandler := handlers.NewGatewayHandler(registry)

	app.Get("/health", handlers.Health)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to Purse API",
			"version": "1.0.0",
			"docs":    "/api",
		})
	})

	// Protected routes
	api := app.Group("/api", middleware.Auth())

	walletRoutes := api.Group("/wallet")
	walletRoutes.Get("/", middleware.RequirePermission(models.PermissionWalletRead), walletHandler.GetWallet)
	walletRoutes.Get("/transactions", middleware.RequirePermission(models.PermissionWalletRead), walletHandler.GetTransactions)

	recharges := walletRoutes.Group("/recharges", middleware.RequirePermission(models.PermissionRechargeWrite))
	recharges.Post("/", rechargeHandler.CreateRecharge)
	recharges.Get("/", rechargeHandler.ListRecharges)
	recharges.Get("/:id", rechargeHandler.GetRecharge)
	recharges.Post("/:id/payment", rechargeHandler.CreateRechargePayment)
	recharges.Post("/:id/complete", rechargeHandler.CompleteRecharge)

	api.Get("/payment-gateways", gatewayHandler.ListGateways)
	api.Get("/payment-gateways/:name/client-token", gatewayHandler.ClientToken)

	// Admin routes
	admin := api.Group("/admin", middleware.RequirePermission(models.PermissionReadAdmin))
	admin.Get("/wallets/:id/reconcile", walletHandler.Reconcile)
	admin.Delete("/wallets/:id", middleware.RequirePermission(models.PermissionWriteAdmin), walletHandler.DeactivateWallet)
	admin.Delete("/wallets/:id/entries/:entryId", middleware.RequirePermission(models.PermissionWriteAdmin), walletHandler.DeleteEntry)
}
