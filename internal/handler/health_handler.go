package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/hostel-allocation-api/internal/config"
	"github.com/noah-isme/hostel-allocation-api/internal/utils"
)

const probeTimeout = 2 * time.Second

// HealthProbe reports whether a backing service is reachable.
type HealthProbe func(ctx context.Context) error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// HealthCheck reports service health. Any failing probe marks the service
// degraded and answers 503.
func HealthCheck(cfg config.Config, probes map[string]HealthProbe) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if len(probes) > 0 {
			payload.Checks = make(map[string]string, len(probes))
			for name, probe := range probes {
				ctx, cancel := context.WithTimeout(c.UserContext(), probeTimeout)
				err := probe(ctx)
				cancel()

				if err != nil {
					payload.Checks[name] = "unavailable"
					payload.Status = "degraded"
					continue
				}
				payload.Checks[name] = "ok"
			}
		}

		if payload.Status != "ok" {
			return utils.Send(c, fiber.StatusServiceUnavailable, utils.APIResponse{Data: payload, Message: "service degraded"})
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
