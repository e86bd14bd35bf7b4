package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/terradactile/api/internal/client"
	"github.com/terradactile/api/internal/config"
	"github.com/terradactile/api/internal/handler"
	"github.com/terradactile/api/internal/middleware"
	"github.com/terradactile/api/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize external clients
	tileSource := client.NewHTTPTileSource(&cfg.Tiles)
	engine := client.NewGDALEngine(&cfg.GDAL)

	storageClient, err := client.NewS3Client(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage client: %v", err)
	}

	// Initialize services
	terrainService := service.NewTerrainService(tileSource, engine, storageClient, service.TerrainOptions{
		TileLimit:        cfg.Tiles.Limit,
		FetchConcurrency: cfg.Tiles.Concurrency,
		ScratchRoot:      cfg.Server.ScratchDir,
	})

	// Initialize handlers
	terrainHandler := handler.NewTerrainHandler(terrainService, validate)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB, requests are small JSON bodies
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"tiles":   cfg.Tiles.BaseURL != "",
				"storage": storageClient != nil,
			},
		})
	})

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes, gated on the origin allow-list before any pipeline work
	api := app.Group("/api", middleware.OriginAllowList(cfg.Server.AllowedOriginList()))

	// Rate limiter is optional: without Redis the origin gate and the tile
	// quota remain the only admission controls.
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis not available: %v", err)
		}
		rateLimiter := middleware.NewRateLimiter(redisClient)
		api.Post("/terrain", rateLimiter.TerrainLimit(cfg.RateLimit.TerrainPerHour), terrainHandler.Create)
	} else {
		api.Post("/terrain", terrainHandler.Create)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
