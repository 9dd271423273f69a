// Package api contains the API routes for the Marketplace API
package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tigerpop/marketplaceapi/internal/api/handlers"
	"github.com/tigerpop/marketplaceapi/internal/api/middleware"
	"github.com/tigerpop/marketplaceapi/internal/config"
	"github.com/tigerpop/marketplaceapi/internal/repository"
	"github.com/tigerpop/marketplaceapi/internal/service"
)

// SetupRoutes configures the routes for the API
func SetupRoutes(e *echo.Echo, cfg *config.Config, db *gorm.DB, redisClient *redis.Client) {

	// Repositories
	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	sessionState := repository.NewSessionStateRepository(redisClient)

	// Services
	casService := service.NewCASService(cfg)
	authService := service.NewAuthService(userRepo, cfg)
	mailService := service.NewMailService(cfg)
	uploadService := service.NewUploadService(cfg)
	listingService := service.NewListingService(listingRepo, userRepo, mailService)

	// Handlers
	casHandler := handlers.NewCASHandler(cfg, casService, authService, sessionState)
	authHandler := handlers.NewAuthHandler(cfg, casService, authService)
	listingHandler := handlers.NewListingHandler(listingService, uploadService)
	userHandler := handlers.NewUserHandler(userRepo)

	requireAuth := middleware.RequireAuth(authService)

	// Create a group for all API routes
	api := e.Group("/api")

	// Index route
	api.GET("", indexRoute)
	api.GET("/", indexRoute)

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.GET("/cas/login", casHandler.Login)
	authGroup.GET("/cas/logout", casHandler.Logout)
	authGroup.GET("/validate", authHandler.Validate)
	authGroup.GET("/verify", authHandler.Verify, requireAuth)
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/login", authHandler.Login)

	// Listing routes; reads are public, writes require a bearer token
	listingGroup := api.Group("/listings")
	listingGroup.GET("", listingHandler.List)
	listingGroup.GET("/categories", listingHandler.Categories)
	listingGroup.GET("/user", listingHandler.ByUser)
	listingGroup.GET("/buyer", listingHandler.ByBuyer)
	listingGroup.GET("/hearted", listingHandler.Hearted, requireAuth)
	listingGroup.POST("", listingHandler.Create, requireAuth)
	listingGroup.POST("/upload", listingHandler.Upload, requireAuth)
	listingGroup.GET("/:id", listingHandler.Get)
	listingGroup.PUT("/:id", listingHandler.Update, requireAuth)
	listingGroup.DELETE("/:id", listingHandler.Delete, requireAuth)
	listingGroup.PATCH("/:id/status", listingHandler.UpdateStatus, requireAuth)
	listingGroup.POST("/:id/buy", listingHandler.BuyRequest, requireAuth)
	listingGroup.POST("/:id/heart", listingHandler.Heart, requireAuth)
	listingGroup.DELETE("/:id/heart", listingHandler.Unheart, requireAuth)

	// User routes
	userGroup := api.Group("/users")
	userGroup.GET("/:id", userHandler.Get)
}

// indexRoute sets up the index route for the API
func indexRoute(c echo.Context) error {
	cfg, err := config.Get()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "configuration unavailable"})
	}
	message := fmt.Sprintf("%s %s", cfg.APIName, cfg.APIVersion)
	return c.JSON(http.StatusOK, map[string]string{"message": message})
}
