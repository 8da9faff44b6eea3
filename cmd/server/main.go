package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"threadmem/internal/config"
	"threadmem/internal/crypto"
	"threadmem/internal/handlers"
	"threadmem/internal/jobs"
	"threadmem/internal/kvstore"
	"threadmem/internal/logging"
	"threadmem/internal/metrics"
	"threadmem/internal/middleware"
	"threadmem/internal/providers"
	"threadmem/internal/threads"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting threadmem server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Store: %s, TTL: %s)", cfg.Port, cfg.StoreBackend, cfg.ThreadTTL)

	// Select the thread backing store
	store, sweeper, err := openStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open backing store: %v", err)
	}
	defer store.Close()

	// Optional at-rest encryption of thread records
	var encryptionService *crypto.EncryptionService
	if cfg.EncryptionMasterKey != "" {
		encryptionService, err = crypto.NewEncryptionService(cfg.EncryptionMasterKey)
		if err != nil {
			log.Fatalf("❌ Failed to initialize encryption: %v", err)
		}
		log.Println("✅ Thread record encryption enabled")
	} else if os.Getenv("ENVIRONMENT") == "production" {
		log.Println("⚠️  ENCRYPTION_MASTER_KEY not set - thread records stored in plaintext")
	}

	// Model capability registry with optional hot-reload
	registry, err := providers.NewRegistry(cfg.ModelsFile)
	if err != nil {
		log.Fatalf("❌ Failed to load model capabilities from %s: %v", cfg.ModelsFile, err)
	}
	if cfg.WatchModelsFile {
		go registry.Watch()
	}

	// Core services
	appMetrics := metrics.Init()
	threadStore := threads.NewStore(appMetrics.InstrumentStore(store), cfg.ThreadTTL, encryptionService)
	planner := threads.NewPlanner(providers.FileEstimator(), cfg.ContentCeilingTokens)

	// Maintenance jobs (expiry sweep for the SQLite backend, store pings)
	jobScheduler, err := jobs.NewScheduler(store, sweeper)
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	if err := jobScheduler.Start(cfg.SweepInterval); err != nil {
		log.Fatalf("❌ Failed to start job scheduler: %v", err)
	}
	defer jobScheduler.Stop()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "threadmem v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    10 * 1024 * 1024, // turns can carry large rendered content
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("threadmem")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Plan=%d/min",
		rateLimitConfig.GlobalAPIMax, rateLimitConfig.PlanMax)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))

	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(store)
	threadHandler := handlers.NewThreadHandler(threadStore, planner, registry, appMetrics)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Post("/resolve", threadHandler.Resolve)
	api.Post("/threads", threadHandler.CreateThread)
	api.Get("/threads/:id", threadHandler.GetThread)
	api.Post("/threads/:id/turns", threadHandler.AppendTurn)
	api.Post("/threads/:id/finalize", threadHandler.Finalize)
	api.Get("/threads/:id/references", threadHandler.GetReferences)
	api.Post("/threads/:id/plan", middleware.PlanRateLimiter(rateLimitConfig), threadHandler.PlanInclusion)
	api.Post("/threads/:id/offer", threadHandler.BuildOffer)

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("⏹️  Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Server shutdown error: %v", err)
		}
	}()

	log.Printf("🌐 Listening on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}

// openStore selects and opens the configured backing store. The returned
// sweeper is non-nil only for backends without native TTL eviction.
func openStore(cfg *config.Config) (kvstore.Store, jobs.Sweeper, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		store, err := kvstore.NewRedisStore(cfg.RedisURL)
		return store, nil, err
	case config.BackendMongo:
		if cfg.MongoURI == "" {
			return nil, nil, fmt.Errorf("MONGODB_URI is required for the mongo backend")
		}
		store, err := kvstore.NewMongoStore(cfg.MongoURI)
		return store, nil, err
	case config.BackendSQLite:
		store, err := kvstore.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.BackendMemory:
		return kvstore.NewMemoryStore(time.Minute), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
