package middleware

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config customises the middleware registration pipeline.
type Config struct {
	Logger *zerolog.Logger
	// AllowOrigins is a comma separated CORS origin list; empty allows any origin.
	AllowOrigins string
	// AccessLog enables the plain-text fiber access log on stdout.
	AccessLog bool
}

// Register attaches the middlewares shared by every route: panic recovery,
// correlation ids, API metrics, CORS and the optional access log.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		requestLogger = *cfg.Logger
	}

	origins := strings.TrimSpace(cfg.AllowOrigins)
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			requestLogger.Error().
				Str("correlation_id", GetCorrelationID(c)).
				Str("path", c.Path()).
				Interface("panic", e).
				Msg("recovered from panic")
		},
	}))
	app.Use(CorrelationID())
	app.Use(Observability(requestLogger))
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:correlation_id} ${status} ${method} ${path} ${latency}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Seed-Token, " + HeaderCorrelationID,
		AllowMethods:  "GET,POST,PATCH,OPTIONS",
		ExposeHeaders: HeaderCorrelationID,
	}))
}
