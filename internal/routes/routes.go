package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/lentil-life/internal/config"
	"github.com/example/lentil-life/internal/handlers"
	"github.com/example/lentil-life/internal/middleware"
	"github.com/example/lentil-life/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	pointsService := services.NewPointsService(db)
	promoService := services.NewPromoService(db)
	slotService := services.NewTimeSlotService(db)
	orderService := services.NewOrderService(db, pointsService, slotService)
	paymentService := services.NewPaymentService(cfg.StripeSecretKey, cfg.StripePublishableKey, cfg.StripeWebhookSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom)
	locationService := services.NewLocationService(cfg.OpenCageAPIKey)

	authHandler := handlers.NewAuthHandler(db, cfg, promoService, pointsService, locationService)
	profileHandler := handlers.NewProfileHandler(db, pointsService)
	menuHandler := handlers.NewMenuHandler(db)
	orderHandler := handlers.NewOrderHandler(db, orderService, pointsService, promoService, paymentService, emailService)
	pointsHandler := handlers.NewPointsHandler(pointsService)
	slotHandler := handlers.NewTimeSlotHandler(slotService)
	paymentHandler := handlers.NewPaymentHandler(db, paymentService, orderService, emailService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/validate-promo-public", authHandler.ValidatePromoPublic)

	// Menu routes
	menu := api.Group("/menu")
	menu.Get("/", menuHandler.List)
	menu.Get("/featured", menuHandler.Featured)
	menu.Get("/category/:category", menuHandler.ByCategory)
	menu.Post("/", menuHandler.Create)
	menu.Get("/:id", menuHandler.Get)
	menu.Put("/:id", menuHandler.Update)
	menu.Delete("/:id", menuHandler.Delete)

	// Time slot routes
	slots := api.Group("/time-slots")
	slots.Get("/", slotHandler.AvailableSlots)
	slots.Get("/dates", slotHandler.AvailableDates)
	slots.Get("/config", slotHandler.Config)
	slots.Put("/config", slotHandler.UpdateConfig)
	slots.Post("/", slotHandler.AddSlot)
	slots.Put("/:id", slotHandler.UpdateSlot)
	slots.Delete("/:id", slotHandler.DeleteSlot)

	// Order routes. Guest checkout is allowed, so creation and lookup stay
	// public; the auth middleware on POST only resolves the user when a
	// token is present.
	orders := api.Group("/orders")
	orders.Post("/", middleware.OptionalAuthMiddleware(cfg), orderHandler.Create)
	orders.Get("/", orderHandler.List)
	orders.Get("/:id", orderHandler.Get)
	orders.Get("/:id/receipt", orderHandler.Receipt)
	orders.Put("/:id/status", orderHandler.UpdateStatus)
	orders.Post("/:id/reminder", orderHandler.SendReminder)
	orders.Delete("/:id", orderHandler.Delete)

	// Points routes
	points := api.Group("/points")
	points.Get("/calculate", pointsHandler.Calculate)
	points.Get("/config", pointsHandler.Config)
	points.Put("/config", pointsHandler.UpdateConfig)
	points.Post("/award", pointsHandler.Award)
	points.Post("/refund", pointsHandler.Refund)

	// Payment routes. The webhook reads the raw body and must not sit
	// behind auth.
	payment := api.Group("/payment")
	payment.Get("/config", paymentHandler.Config)
	payment.Post("/create-intent", paymentHandler.CreateIntent)
	payment.Post("/confirm", paymentHandler.Confirm)
	payment.Post("/calculate-fee", paymentHandler.Fee)
	payment.Get("/status/:id", paymentHandler.Status)
	payment.Post("/refund", paymentHandler.Refund)
	payment.Post("/webhook", paymentHandler.Webhook)

	// Authenticated routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))
	protected.Get("/profile", profileHandler.Me)
	protected.Put("/profile", profileHandler.Update)
	protected.Get("/profile/orders", orderHandler.ListMine)
	protected.Get("/points/balance", pointsHandler.Balance)
	protected.Get("/points/history", pointsHandler.History)
	protected.Get("/points/user/:id", pointsHandler.UserBalance)
	protected.Get("/points/user/:id/history", pointsHandler.UserHistory)
	protected.Post("/points/spend", pointsHandler.Spend)
}
