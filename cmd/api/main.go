package main

import (
	"context"
	"log"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"sdcp-backend/config"
	"sdcp-backend/internal/database"
	"sdcp-backend/internal/handlers"
	"sdcp-backend/internal/ingest"
	"sdcp-backend/internal/media"
	"sdcp-backend/internal/routes"
	"sdcp-backend/internal/services"
	"sdcp-backend/internal/storage"
	"sdcp-backend/internal/store"
)

func main() {
	// 1. Load Configuration
	cfg := config.LoadConfig()

	// 2. Record store: Postgres when configured, JSON files otherwise
	var stores *store.Stores
	var err error
	if cfg.DatabaseURL != "" {
		stores, err = store.NewPGStores(cfg.DatabaseURL)
	} else {
		stores, err = store.NewJSONStores(cfg.DataDir)
	}
	if err != nil {
		log.Fatal("Failed to open record store: ", err)
	}

	// 3. Blob storage
	var blobs storage.Blobs
	switch cfg.StorageBackend {
	case "s3":
		blobs, err = storage.NewS3(cfg)
	default:
		blobs, err = storage.NewLocal(cfg.UploadDir)
	}
	if err != nil {
		log.Fatal("Failed to open blob storage: ", err)
	}

	// 4. Ingestion pipeline
	pipeline := &ingest.Pipeline{
		Examples:  stores.Examples,
		Blobs:     blobs,
		Transform: media.NewTools(cfg.FFmpegPath, cfg.FFprobePath),
		Timeout:   cfg.TransformTimeout,
	}

	// 5. Submission: Redis queue + worker when available, inline otherwise
	var submitter ingest.Submitter = &ingest.Inline{Pipeline: pipeline}
	var queue *ingest.Queue
	var hub *services.EventHub
	if database.ConnectRedis(cfg) {
		queue = ingest.NewQueue(database.RedisClient)
		submitter = queue
		hub = services.NewEventHub()

		ctx := context.Background()
		go ingest.NewWorker(database.RedisClient, pipeline).Run(ctx)
		go services.StartEventRelay(ctx, database.RedisClient, hub)
	}

	ops := &ingest.Admin{
		Examples:   stores.Examples,
		Blobs:      blobs,
		Submitter:  submitter,
		PendingDir: filepath.Join(cfg.UploadDir, "pending"),
	}

	// 6. Notifications (log transport until a mail provider is wired in)
	var notifier services.Notifier = services.LogNotifier{}

	// 7. Initialize Fiber App
	app := fiber.New(fiber.Config{
		AppName:   cfg.AppName,
		BodyLimit: int(cfg.MaxUploadBytes),
	})

	// 8. Middleware
	app.Use(logger.New())  // Request logging
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*", // Allow all for dev, restrict in prod
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, HEAD, PUT, DELETE, PATCH",
	}))

	// Serve stored media directly when blobs live on local disk
	if cfg.StorageBackend != "s3" {
		app.Static("/uploads", cfg.UploadDir)
	}

	// 9. Routes
	gallery := handlers.NewExamplesHandler(cfg, stores.Examples, blobs, submitter)
	routes.SetupRoutes(app, &routes.Handlers{
		Auth:         handlers.NewAuthHandler(cfg, stores.Users, notifier),
		Users:        handlers.NewUserHandler(stores.Users, stores.Referrals),
		Examples:     gallery,
		Referrals:    handlers.NewReferralsHandler(stores.Referrals, stores.Users, notifier),
		Estimates:    handlers.NewEstimatesHandler(cfg, stores.Estimates, stores.Referrals, stores.Users, notifier),
		Testimonials: handlers.NewTestimonialsHandler(stores.Testimonials),
		Admin:        handlers.NewAdminHandler(cfg, stores.Estimates, stores.Examples, ops, queue, notifier, gallery),
		EventHub:     hub,
	})

	// 10. Start Server
	log.Printf("🚀 Server starting on port %s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal("Server failed to start: ", err)
	}
}
