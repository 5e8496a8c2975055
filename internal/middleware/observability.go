package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hostel-allocation-api/internal/observability"
)

const apiPrefix = "/api/v1/"

// Observability records request metrics and a structured access log for API
// routes. Requests outside /api/v1 (metrics scrapes, probes) are not recorded.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		area := apiArea(c.Path())
		if area == "" {
			return err
		}

		route := routeTemplate(c)
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)

		observability.APIRequests().WithLabelValues(area, method, route, statusLabel).Inc()
		observability.APILatency().WithLabelValues(area, method, route).Observe(duration.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.APIErrors().WithLabelValues(area, method, route, statusLabel).Inc()
		}

		event := logger.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			event = logger.Error()
		case status >= fiber.StatusBadRequest:
			event = logger.Warn()
		}

		event.
			Str("correlation_id", GetCorrelationID(c)).
			Str("area", area).
			Str("route", route).
			Str("method", method).
			Int("status", status).
			Float64("latency_ms", float64(duration)/float64(time.Millisecond)).
			Interface("user_id", c.Locals("user_id")).
			Msg("request completed")

		return err
	}
}

// apiArea returns the first path segment below /api/v1, e.g. "student" or "admin".
func apiArea(path string) string {
	if !strings.HasPrefix(path, apiPrefix) {
		return ""
	}
	rest := strings.TrimPrefix(path, apiPrefix)
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

func routeTemplate(c *fiber.Ctx) string {
	if c.Route() != nil && c.Route().Path != "" {
		return c.Route().Path
	}
	return c.Path()
}
