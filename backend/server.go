// Package backend serves a read-only JSON view of the population and pool.
package backend

import (
	"log/slog"
	"time"

	"github.com/agentmarket/popsim/backend/handlers"
	"github.com/agentmarket/popsim/backend/middleware"
	"github.com/agentmarket/popsim/backend/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Options struct {
	AllowOrigins string
	// RateLimit is requests per minute per client. Zero disables limiting.
	RateLimit int
}

func NewServer(webApp *handlers.WebApp, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "popsim status API",
		ErrorHandler:          middleware.CustomErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	if opts.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: opts.AllowOrigins,
			AllowMethods: "GET,OPTIONS",
		}))
	}
	app.Use(middleware.LoggingMiddleware())

	setupRoutes(app, webApp, opts)
	return app
}

func setupRoutes(app *fiber.App, webApp *handlers.WebApp, opts Options) {
	app.Get("/health", handlers.HealthCheck(webApp))

	api := app.Group("/api")
	if opts.RateLimit > 0 {
		api.Use(middleware.RateLimit(opts.RateLimit, time.Minute))
	}
	api.Get("/summary", handlers.Summary(webApp))
	api.Get("/summary/integrity", handlers.Integrity(webApp))
	api.Get("/agents/unfunded", handlers.Unfunded(webApp))
	api.Get("/activity", handlers.Activity(webApp))
	api.Get("/pool", handlers.Pool(webApp))
	api.Get("/pool/history", handlers.PoolHistory(webApp))
	api.Get("/pool/quote", handlers.PoolQuote(webApp))
	api.Get("/archetypes", handlers.Archetypes(webApp))

	app.Use(func(c *fiber.Ctx) error {
		slog.Warn("No route matched for request",
			slog.String("type", "sys"),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()))
		return utils.SendNotFound(c, "The requested endpoint does not exist")
	})
}
