package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"sdcp-backend/internal/handlers"
	"sdcp-backend/internal/middleware"
	"sdcp-backend/internal/services"
)

// Handlers bundles everything SetupRoutes wires into the app.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Users        *handlers.UserHandler
	Examples     *handlers.ExamplesHandler
	Referrals    *handlers.ReferralsHandler
	Estimates    *handlers.EstimatesHandler
	Testimonials *handlers.TestimonialsHandler
	Admin        *handlers.AdminHandler

	// EventHub is nil when Redis is not configured; the admin event
	// stream route is then simply absent.
	EventHub *services.EventHub
}

func SetupRoutes(app *fiber.App, h *Handlers) {
	api := app.Group("/api/v1")

	// Health Check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "message": "SDCP API is running 🎨"})
	})

	// Public routes
	api.Post("/auth/signup", h.Auth.Signup)
	api.Post("/auth/login", h.Auth.Login)
	api.Get("/examples", h.Examples.ListExamples)
	api.Get("/testimonials", h.Testimonials.ListTestimonials)
	api.Post("/estimates", h.Estimates.RequestEstimate)

	// Protected routes (require authentication)
	protected := api.Group("", middleware.AuthMiddleware)

	// Profile
	protected.Get("/users/me", h.Users.GetMe)
	protected.Put("/users/me", h.Users.UpdateProfile)

	// Referrals
	protected.Post("/referrals", h.Referrals.GenerateReferral)

	// Example gallery
	protected.Get("/examples/mine", h.Examples.ListMyExamples)
	protected.Post("/examples/upload", h.Examples.UploadExample)

	// Testimonials
	protected.Post("/testimonials", h.Testimonials.AddTestimonial)

	// Admin routes
	admin := protected.Group("/admin", middleware.AdminMiddleware)
	admin.Get("/estimates", h.Admin.ListEstimates)
	admin.Post("/estimates/:id/process", h.Admin.ProcessEstimate)
	admin.Get("/examples", h.Admin.ListExamples)
	admin.Post("/examples/:id/approve", h.Admin.ApproveExample)
	admin.Post("/examples/:id/retry", h.Admin.RetryExample)
	admin.Delete("/examples/:id", h.Admin.DeleteExample)
	admin.Get("/queue-stats", h.Admin.QueueStats)

	if h.EventHub != nil {
		admin.Get("/events", websocket.New(handlers.AdminEvents(h.EventHub)))
	}
}
