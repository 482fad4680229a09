package api

import (
	"crypto/subtle"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
)

// ServerConfig is what CreateServer needs from the application config
type ServerConfig struct {
	AppName      string
	Timeout      time.Duration
	BodyLimit    int
	IsProduction bool
}

// CreateServer builds the fiber app with the shared middleware stack
func CreateServer(cfg ServerConfig, log zerolog.Logger) *fiber.App {
	fiberConfig := fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: errorHandler(log),
	}
	if !cfg.IsProduction {
		fiberConfig.EnablePrintRoutes = true
	}

	app := fiber.New(fiberConfig)

	app.Use(requestid.New())
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			os.Stderr.WriteString(fmt.Sprintf("panic: %v\n%s\n", e, string(debug.Stack())))
		},
	}))

	if !cfg.IsProduction {
		app.Use(logger.New(logger.Config{
			Format:     "${pid} ${ip} ${locals:requestid} ${status} ${latency} - ${method} ${path}\n",
			TimeFormat: time.RFC3339,
			Output:     os.Stdout,
		}))
	} else {
		app.Use(helmet.New())
	}

	return app
}

// AdminOnly guards operator routes with a static token. An empty token
// leaves the routes open.
func AdminOnly(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}
		got := c.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "admin token required",
			})
		}
		return c.Next()
	}
}
