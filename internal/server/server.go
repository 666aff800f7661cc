package server

import (
	"github.com/arcane-tl/asset-service/internal/config"
	"github.com/arcane-tl/asset-service/internal/metrics"
	"github.com/arcane-tl/asset-service/internal/middlewares"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

// New builds the Fiber application with the global middlewares and the
// operational endpoints. Routes are attached by the caller.
func New(cfg *config.Config, logger *zap.SugaredLogger, ipLimiter *middlewares.IPRateLimiter) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BodyLimit:    50 * 1024 * 1024,
	})

	app.Use(cors.New())
	app.Use(middlewares.RequestLogger(logger))
	if ipLimiter != nil {
		app.Use(ipLimiter.Middleware())
	}

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	return app
}
