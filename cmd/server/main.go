package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"github.com/clickwise/commission-svc/internal/attribution"
	"github.com/clickwise/commission-svc/internal/commission"
	"github.com/clickwise/commission-svc/internal/config"
	"github.com/clickwise/commission-svc/internal/database"
	"github.com/clickwise/commission-svc/internal/handlers"
	"github.com/clickwise/commission-svc/internal/logger"
	"github.com/clickwise/commission-svc/internal/notify"
	"github.com/clickwise/commission-svc/internal/processor"
	"github.com/clickwise/commission-svc/internal/rabbitmq"
	"github.com/clickwise/commission-svc/internal/revenue"
	"github.com/clickwise/commission-svc/internal/routes"
	"github.com/clickwise/commission-svc/internal/service"
	"github.com/clickwise/commission-svc/internal/worker"
)

func main() {
	if err := logger.Init(os.Getenv("LOG_LEVEL")); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Logger

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	// Stripe API key for fee lookups
	stripe.Key = cfg.Stripe.SecretKey

	// Connect to PostgreSQL
	db, err := database.Connect(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	// Apply migrations
	if err := database.RunMigrations(&cfg.Database, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to RabbitMQ
	rmq := rabbitmq.NewConnection(&cfg.RabbitMQ, log)
	if err := rmq.Connect(); err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer rmq.Close()

	// Connect to Redis for the click cache
	redisClient, err := attribution.Connect(cfg.Redis.URL)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	clickCache := attribution.NewClickCache(redisClient)

	svc := service.NewService(db, log, rmq, clickCache)

	// Attribution resolver
	resolver := &attribution.Resolver{
		Cache:     clickCache,
		Analytics: attribution.NewAnalyticsClient(cfg.Analytics.Host, cfg.Analytics.Token),
		Customers: attribution.NewGormCustomerStore(db),
		Links:     attribution.NewGormLinkRegistry(db),
		Logger:    log,
	}

	// Revenue decomposer
	decomposer := &revenue.Decomposer{
		Fees:            processor.NewFeeClient(),
		FallbackPercent: cfg.Commission.FeeFallbackPercent,
		FallbackFixed:   cfg.Commission.FeeFallbackFixed,
		Logger:          log,
	}

	// Commission engine and stores
	notifier := notify.NewNotifier(rmq, cfg.Worker.NotificationsExchange, log)
	commissionStore := commission.NewGormStore(db)
	engine := commission.NewEngine(
		commissionStore,
		commission.NewGormRegistry(db),
		notifier,
		commission.Config{
			HoldDays:           cfg.Commission.HoldDays,
			PlatformFeePercent: cfg.Commission.PlatformFeePercent,
			DefaultReward:      cfg.Commission.DefaultReward,
		},
		log,
	)

	// Processing pipeline and worker
	pipeline := worker.NewPipeline(worker.NewGormLedger(db), resolver, decomposer, engine, log)
	w := worker.NewWorker(&cfg.Worker, rmq, pipeline, log)
	if err := w.Start(); err != nil {
		log.Fatal("Failed to start worker", zap.Error(err))
	}

	// Maturity job
	maturityJob := commission.NewMaturityJob(
		commissionStore,
		time.Duration(cfg.Commission.MaturityIntervalS)*time.Second,
		log,
	)
	maturityJob.Start()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Commission Service",
		ServerHeader: "Fiber",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,Stripe-Signature",
	}))

	// Setup routes
	healthHandler := handlers.NewHealthHandler(svc.DB, svc.RMQ, svc.Cache)
	webhookHandler := handlers.NewWebhookHandler(
		handlers.NewGormEndpointStore(db),
		rmq,
		cfg.Worker.TaskExchange,
		cfg.Worker.TaskRoutingKey,
		log,
	)
	commissionsHandler := handlers.NewCommissionsHandler(commissionStore, log)
	routes.SetupRoutes(app, healthHandler, webhookHandler, commissionsHandler)

	// Start server in a goroutine
	go func() {
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		log.Info("Server starting",
			zap.String("address", addr),
		)
		if err := app.Listen(addr); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		log.Error("Error during server shutdown", zap.Error(err))
	}

	maturityJob.Stop()

	if err := w.Stop(); err != nil {
		log.Error("Error stopping worker", zap.Error(err))
	}

	log.Info("Server stopped")
}
