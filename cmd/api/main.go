package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/linktally/linktally/internal/adapters/events"
	"github.com/linktally/linktally/internal/adapters/handlers"
	"github.com/linktally/linktally/internal/adapters/middleware"
	"github.com/linktally/linktally/internal/adapters/repositories"
	"github.com/linktally/linktally/internal/adapters/workers"
	"github.com/linktally/linktally/internal/config"
	"github.com/linktally/linktally/internal/core/ports"
	"github.com/linktally/linktally/internal/core/services"
)

func main() {
	cfg := config.Load()
	startTime := time.Now()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal(err)
	}
	opt.PoolSize = 50
	opt.MinIdleConns = 20
	opt.MaxRetries = 2
	opt.PoolTimeout = 2 * time.Second
	opt.DialTimeout = 2 * time.Second
	opt.ReadTimeout = 1 * time.Second
	opt.WriteTimeout = 1 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	opt.ConnMaxLifetime = 30 * time.Minute
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	linkRepo := repositories.NewRedisRepo(rdb)
	limiter := repositories.NewRedisRateLimiter(rdb)

	var archive ports.LinkArchive
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()

		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(10 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)

		if err := repositories.EnsureArchiveSchema(context.Background(), db); err != nil {
			log.Fatal(err)
		}
		archive = repositories.NewPostgresArchive(db)
	}

	var publisher ports.VisitPublisher
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL, nats.Name("linktally-api"))
		if err != nil {
			log.Printf("nats unavailable, visit events disabled: %v", err)
		} else {
			defer nc.Close()
			publisher = events.NewNATSPublisher(nc, "")
		}
	}

	linkService := services.NewLinkService(linkRepo, archive, publisher, services.Options{
		CodeLength:     cfg.CodeLength,
		MaxGenAttempts: cfg.GenAttempts,
		StatsRetention: cfg.StatsRetention,
	})
	httpHandler := handlers.NewHTTPHandler(linkService, linkRepo, archive, cfg.BaseURL)
	rateLimit := middleware.NewRateLimitMiddleware(limiter, cfg.RateLimit, cfg.RateWindow)

	if cfg.WorkerInterval > 0 {
		workerCtx, stopWorker := context.WithCancel(context.Background())
		defer stopWorker()
		go workers.NewAnalyticsWorker(rdb, cfg.WorkerInterval).Run(workerCtx)
	}

	app := fiber.New(fiber.Config{
		ServerHeader:      "LinkTally",
		AppName:           "LinkTally URL Shortener",
		DisableKeepalive:  false,
		ReduceMemoryUsage: true,
	})
	app.Use(logger.New())

	origins := []string{cfg.AllowedOrigin}
	if cfg.AllowedOrigin == "" {
		origins = []string{"*"}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		AllowMethods: []string{"GET", "HEAD", "POST", "OPTIONS"},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "LinkTally URL Shortener API",
			"version":   "1.0.0",
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"uptime":    time.Since(startTime).String(),
		})
	})

	app.Get("/healthz", httpHandler.Healthz)
	app.Get("/api/top", httpHandler.TopLinks)
	app.Get("/api/stats/:code", httpHandler.LinkStats)
	app.Get("/api/links", httpHandler.ListLinks)

	// Creation and resolution consume rate budget; analytics reads do not.
	app.Post("/api/shorten", httpHandler.CreateShortLink, rateLimit.Handle)
	app.Get("/api/resolve/:code", httpHandler.ResolveCode, rateLimit.Handle)
	app.Get("/:code", httpHandler.Redirect, rateLimit.Handle)

	log.Fatal(app.Listen(":" + cfg.Port))
}
