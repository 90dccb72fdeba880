// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"coursewallet/internal/handlers"
	"coursewallet/internal/middleware"
	"coursewallet/internal/repositories"
	"coursewallet/internal/services/auth"
	"coursewallet/internal/services/bonus"
	"coursewallet/internal/services/enrollment"
	"coursewallet/internal/services/ledger"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize repositories
	store := repositories.NewStore(db)
	ledgerRepo := repositories.NewLedgerRepository(db)
	userRepo := repositories.NewUserRepository(db)
	courseRepo := repositories.NewCourseRepository(db)

	// Initialize services in dependency order
	ledgerService := ledger.NewService(
		ledgerRepo,
		repositories.CacheService,
		ledger.Config{},
		&ledger.NoopMetricsCollector{},
	)
	enrollmentService := enrollment.NewService(ledgerService, courseRepo, userRepo)
	bonusService := bonus.NewService(store, ledgerService, repositories.CacheService)
	authService := auth.NewService(userRepo, ledgerService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	walletHandler := handlers.NewWalletHandler(ledgerService)
	enrollmentHandler := handlers.NewEnrollmentHandler(enrollmentService)
	bonusHandler := handlers.NewBonusHandler(bonusService)

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Post("/register", authHandler.Register)
	api.Post("/login", authHandler.Login)
	api.Post("/refresh", authHandler.RefreshToken)

	app.Get("/health", handlers.HealthCheck)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Course Wallet API",
			"docs":    "/api",
		})
	})

	authMiddleware := middleware.NewAuthMiddleware(authService)

	// Protected routes with auth middleware
	protected := api.Use(authMiddleware.Handler)

	// Wallet routes (any authenticated user)
	wallet := protected.Group("/wallet")
	wallet.Get("/", walletHandler.GetWallet)
	wallet.Get("/transactions", walletHandler.GetTransactionHistory)

	// Enrollment (students only)
	protected.Post("/courses/:id/enroll", middleware.RequireStudent(), enrollmentHandler.Enroll)

	// Accountant operations
	protected.Post("/deposits", middleware.RequireAccountant(), walletHandler.CreateDeposit)

	bonuses := protected.Group("/bonuses", middleware.RequireAccountant())
	bonuses.Get("/", bonusHandler.List)
	bonuses.Post("/compute", bonusHandler.Compute)
	bonuses.Post("/compute-all", bonusHandler.ComputeAll)
	bonuses.Get("/:id", bonusHandler.Get)
	bonuses.Post("/:id/send", bonusHandler.Send)
}
