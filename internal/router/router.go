// Package router assembles the fiber application: global middleware,
// the /api/v1 routes and the health check.
package router

import (
	"context"
	"time"

	"cardanocart/internal/config"
	"cardanocart/internal/handlers"
	"cardanocart/internal/middleware"
	"cardanocart/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
)

// Dependencies are the services the routes are served by.
type Dependencies struct {
	Config     *config.Config
	Auth       *services.AuthService
	Users      *services.UserService
	Products   *services.ProductService
	Categories *services.CategoryService
	Reviews    *services.ReviewService
	Orders     *services.OrderService

	// Ping reports database health on /health. Optional.
	Ping func(ctx context.Context) error
}

// New builds the fiber app with every route registered.
func New(deps Dependencies) *fiber.App {
	cfg := deps.Config
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
		BodyLimit:    cfg.App.BodyLimit,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: !cfg.App.IsProduction(),
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			logrus.WithField("panic", e).WithField("path", c.Path()).Error("Recovered from panic")
		},
	}))
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	if cfg.Storage.Driver == "local" {
		app.Static(cfg.Storage.BaseURL, cfg.Storage.LocalDir)
	}

	app.Get("/health", healthHandler(deps.Ping))

	auth := middleware.AuthRequired(deps.Auth)
	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)

	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(deps.Auth).RegisterRoutes(apiV1, authLimiter.Handler())
	handlers.NewUserHandler(deps.Users, cfg.Storage.MaxImageSize).RegisterRoutes(apiV1, auth)
	handlers.NewReviewHandler(deps.Reviews).RegisterRoutes(apiV1, auth)
	handlers.NewProductHandler(deps.Products, cfg.Storage.MaxImageSize).RegisterRoutes(apiV1, auth)
	handlers.NewCategoryHandler(deps.Categories).RegisterRoutes(apiV1, auth)
	handlers.NewOrderHandler(deps.Orders).RegisterRoutes(apiV1, auth)

	return app
}

func healthHandler(ping func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				logrus.WithError(err).Warn("Health check failed")
				body["status"] = "unhealthy"
				body["database"] = "unreachable"
				return c.Status(fiber.StatusServiceUnavailable).JSON(body)
			}
			body["database"] = "connected"
		}
		return c.JSON(body)
	}
}
