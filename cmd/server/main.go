// @title           Law Office Subscription API
// @version         1.0
// @description     Subscription access-control and payment-approval engine: users submit InstaPay transfer proofs, administrators review them, approval activates time-boxed access.
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/hazem-e99/lawyers-sub000/internal/auth"
	"github.com/hazem-e99/lawyers-sub000/internal/payments"
	"github.com/hazem-e99/lawyers-sub000/internal/storage"
	"github.com/hazem-e99/lawyers-sub000/internal/subscription"
	"github.com/hazem-e99/lawyers-sub000/pkg/database"
	"github.com/hazem-e99/lawyers-sub000/pkg/logger"
	"github.com/hazem-e99/lawyers-sub000/pkg/models"
)

func main() {
	_ = godotenv.Load()
	log := logger.L()

	db := database.Init()
	if err := db.AutoMigrate(
		&models.User{}, &models.Subscription{}, &models.PaymentRequest{},
		&models.PricingSettings{}, &models.SubscriptionEvent{},
	); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	if err := payments.EnsureDefaultSettings(db); err != nil {
		log.Fatal().Err(err).Msg("seeding pricing settings failed")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
		BodyLimit:    payments.MaxScreenshotSize + 1024*1024, // screenshot plus form overhead
	})

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	api := app.Group("/api")

	// Auth
	authH := auth.NewHandler(db)
	api.Post("/signup", authH.Signup)
	api.Post("/login", authH.Login)
	api.Get("/me", auth.RequireAuth(), authH.Me)

	// Storage helper
	sb := storage.NewSupabase() // uses SUPABASE_URL / SUPABASE_SERVICE_KEY / SUPABASE_BUCKET

	// Subscription (entitlement + activation engine)
	subH := subscription.NewHandler(db)
	api.Get("/subscription/status", auth.RequireAuth(), subH.Status)
	api.Post("/subscription/start", auth.RequireAuth(), subH.Start)
	api.Post("/subscription/renew", auth.RequireAuth(), subH.Renew)
	api.Post("/subscription/cancel", auth.RequireAuth(), subH.Cancel)

	// Payments
	payH := payments.NewHandler(db, sb)
	// User-facing
	api.Post("/payments/instapay/request", auth.RequireAuth(), payH.Submit)
	api.Get("/payments/mine", auth.RequireAuth(), payH.ListMine)
	// Back office
	adminOrSuper := auth.RequireAnyRole(models.RoleAdmin, models.RoleSuperadmin)
	api.Get("/payments/admin/pending", auth.RequireAuth(), adminOrSuper, payH.ListPending)
	api.Get("/payments/admin/all", auth.RequireAuth(), adminOrSuper, payH.ListAll)
	api.Get("/payments/admin/settings", auth.RequireAuth(), auth.RequireRole(models.RoleSuperadmin), payH.GetSettings)
	api.Put("/payments/admin/settings", auth.RequireAuth(), auth.RequireRole(models.RoleSuperadmin), payH.UpdateSettings)
	api.Get("/payments/admin/:id/screenshot-url", auth.RequireAuth(), adminOrSuper, payH.ScreenshotURL)
	api.Post("/payments/admin/:id/approve", auth.RequireAuth(), auth.RequireRole(models.RoleSuperadmin), payH.Approve)
	api.Post("/payments/admin/:id/reject", auth.RequireAuth(), auth.RequireRole(models.RoleSuperadmin), payH.Reject)

	// Product routes (cases, clients, court sessions, documents) mount
	// behind this guard: a usable subscription, or the admin/superadmin
	// bypass built into the entitlement resolver.
	appGroup := api.Group("/app", auth.RequireAuth(), auth.RequireEntitlement(db))
	appGroup.Get("/ping", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	log.Info().Str("port", port).Msg("server running")
	log.Fatal().Err(app.Listen(":" + port)).Msg("server stopped")
}
