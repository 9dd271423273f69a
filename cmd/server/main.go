// Package main is the entry point for the Marketplace API
package main

import (
	"fmt"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/tigerpop/marketplaceapi/internal/api"
	"github.com/tigerpop/marketplaceapi/internal/api/middleware"
	"github.com/tigerpop/marketplaceapi/internal/config"
	"github.com/tigerpop/marketplaceapi/internal/repository"
	"github.com/tigerpop/marketplaceapi/internal/service"
	"github.com/tigerpop/marketplaceapi/pkg/utils/zaplogger"
)

func main() {
	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Print the configuration
	fmt.Println(cfg.String())

	// Connect to Postgres
	db, err := repository.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}

	// Connect Redis
	redisClient, err := repository.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Init logger
	err = zaplogger.InitLogger(db)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Setup logger
	defer zaplogger.Sync()
	zaplogger.SetLogLevel(cfg.ServerLogLevel)

	// startUpMessage
	zaplogger.Info(cfg.APIName + " - " + cfg.APIVersion + " initialized")
	zaplogger.Info("Postgres initialized")
	zaplogger.Info("Redis initialized")

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Setup middleware
	middleware.SetupLoggerMiddleware(e)

	// Setup routes
	api.SetupRoutes(e, cfg, db, redisClient)

	// Setup and start cron jobs
	cronService := service.NewCronService(cfg, db)
	cronService.Start()

	// Start the server
	startServer(e, cfg)

}

// startServer starts the Echo server. The port is always set: config loading
// fails at startup when MP_API_SERVER_PORT is missing.
func startServer(e *echo.Echo, cfg *config.Config) {
	zaplogger.Info("SERVER STARTED ON PORT " + cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
